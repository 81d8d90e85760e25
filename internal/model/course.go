package model

// Course is one entry of a source's course catalog. ID is the upstream's own
// identifier and is only unique within that source.
type Course struct {
	ID       string `json:"id"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	Category string `json:"category"`
}
