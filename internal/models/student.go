package models

// Student is a roster member of a notebook. Number is the roll number shown
// in the first column of every sheet and is unique within a roster.
type Student struct {
	ID     string `db:"id" json:"id"`
	Name   string `db:"name" json:"name"`
	Number int    `db:"number" json:"number"`
}
