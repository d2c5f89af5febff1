package models

import "fmt"

// VersionKey identifies one frozen revision of a versioned entity
// (template, question or option). Answers reference questions and options
// by VersionKey so that later forks never change what a submission meant.
type VersionKey struct {
	Name    string `json:"name"`
	Version int    `json:"version"`
}

func (k VersionKey) String() string {
	return fmt.Sprintf("%s@v%d", k.Name, k.Version)
}
