package models

import "time"

// SectionType is one of the fixed topical buckets.
type SectionType string

const (
	SectionGeneral       SectionType = "GENERAL"
	SectionTechnology    SectionType = "TECHNOLOGY"
	SectionScience       SectionType = "SCIENCE"
	SectionArts          SectionType = "ARTS"
	SectionSports        SectionType = "SPORTS"
	SectionEntertainment SectionType = "ENTERTAINMENT"
	SectionGaming        SectionType = "GAMING"
	SectionNews          SectionType = "NEWS"
)

// SectionTypeInfo is the display metadata for a section type.
type SectionTypeInfo struct {
	Type        SectionType `json:"type"`
	DisplayName string      `json:"display_name"`
	Description string      `json:"description"`
}

// SectionTypes lists every section type in display order.
var SectionTypes = []SectionTypeInfo{
	{SectionGeneral, "General", "General discussion"},
	{SectionTechnology, "Technology", "Technology and computing"},
	{SectionScience, "Science", "Science and discoveries"},
	{SectionArts, "Arts", "Art and culture"},
	{SectionSports, "Sports", "Sports and physical activity"},
	{SectionEntertainment, "Entertainment", "Film, music and television"},
	{SectionGaming, "Gaming", "Video games and e-sports"},
	{SectionNews, "News", "Current events"},
}

// Valid reports whether t is a known section type.
func (t SectionType) Valid() bool {
	_, ok := t.Info()
	return ok
}

// Info returns the display metadata for t.
func (t SectionType) Info() (SectionTypeInfo, bool) {
	for _, info := range SectionTypes {
		if info.Type == t {
			return info, true
		}
	}
	return SectionTypeInfo{}, false
}

// SectionStatus toggles whether a section accepts new posts.
type SectionStatus string

const (
	SectionActive   SectionStatus = "ACTIVED"
	SectionInactive SectionStatus = "INACTIVE"
)

// Valid reports whether s is a known status.
func (s SectionStatus) Valid() bool {
	return s == SectionActive || s == SectionInactive
}

// Section is a topical bucket with a denormalised post counter.
type Section struct {
	ID          string        `db:"id" json:"id"`
	SectionType SectionType   `db:"section_type" json:"section_type"`
	Status      SectionStatus `db:"status" json:"status"`
	PostCount   int           `db:"post_count" json:"post_count"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updated_at"`
}
