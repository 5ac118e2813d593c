package models

// RoleType defines the user role type
type RoleType string

const (
	RoleOrganizer RoleType = "ORGANIZER"
	RoleVolunteer RoleType = "VOLUNTEER"
)

// Valid reports whether r is a role a user can register with
func (r RoleType) Valid() bool {
	return r == RoleOrganizer || r == RoleVolunteer
}

// Category classifies an action
type Category string

// Category constants
const (
	CategoryHealth      Category = "HEALTH"
	CategoryEducation   Category = "EDUCATION"
	CategoryEnvironment Category = "ENVIRONMENT"
	CategoryAnimals     Category = "ANIMALS"
	CategoryOther       Category = "OTHER"
)

var categoryLabels = map[Category]string{
	CategoryHealth:      "Health",
	CategoryEducation:   "Education",
	CategoryEnvironment: "Environment",
	CategoryAnimals:     "Animals",
	CategoryOther:       "Other",
}

// Categories returns every category in display order
func Categories() []Category {
	return []Category{CategoryHealth, CategoryEducation, CategoryEnvironment, CategoryAnimals, CategoryOther}
}

// Valid reports whether c is a known category
func (c Category) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}

// Label returns the human readable name
func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return string(c)
}
