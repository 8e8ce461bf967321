package dto

import (
	"github.com/cuongbtq/job-tracker/internal/api/session"
	"github.com/cuongbtq/job-tracker/internal/api/storage"
)

type SelectProviderRequest struct {
	Provider string `json:"provider" binding:"required"`
}

type SessionDTO struct {
	Provider      storage.Name   `json:"provider"`
	Preference    storage.Name   `json:"preference,omitempty"`
	Authenticated bool           `json:"authenticated"`
	Selectable    []storage.Name `json:"selectable"`
}

func FromSessionView(v session.View) SessionDTO {
	return SessionDTO{
		Provider:      v.Provider,
		Preference:    v.Preference,
		Authenticated: v.Authenticated,
		Selectable:    v.Selectable,
	}
}
