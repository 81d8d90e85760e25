package model

// Lesson is a single scheduled lesson. StartsAt and EndsAt hold millisecond
// epochs as decimal text; no timezone normalization happens here.
type Lesson struct {
	StartsAt    string  `json:"starts_at"`
	EndsAt      string  `json:"ends_at"`
	Subject     string  `json:"subject"`
	Teacher     *string `json:"teacher,omitempty"`
	Location    *string `json:"location,omitempty"`
	Description *string `json:"description,omitempty"`
}

// Ptr returns a pointer to s, for the optional Lesson fields.
func Ptr(s string) *string {
	return &s
}
