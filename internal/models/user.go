package models

import "encoding/json"

// User is the identity service view of a caller.
type User struct {
	SubjectID string `json:"userSubjectId"`
	Email     string `json:"userEmail,omitempty"`
	Enabled   bool   `json:"enabled"`
}

// UnmarshalJSON accepts both the current userSubjectId field and the older subjectId name.
func (u *User) UnmarshalJSON(data []byte) error {
	var raw struct {
		UserSubjectID string `json:"userSubjectId"`
		SubjectID     string `json:"subjectId"`
		UserEmail     string `json:"userEmail"`
		Enabled       bool   `json:"enabled"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	u.SubjectID = raw.UserSubjectID
	if u.SubjectID == "" {
		u.SubjectID = raw.SubjectID
	}
	u.Email = raw.UserEmail
	u.Enabled = raw.Enabled
	return nil
}

// DistinctID is the analytics identifier for a verified user.
func (u User) DistinctID() string {
	return "google:" + u.SubjectID
}
