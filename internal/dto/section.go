package dto

// UpdateSectionStatusRequest toggles a section.
type UpdateSectionStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=ACTIVED INACTIVE"`
}

// SectionInitResult reports the outcome of seeding sections.
type SectionInitResult struct {
	Created []string `json:"created"`
	Total   int      `json:"total"`
}
