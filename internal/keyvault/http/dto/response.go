// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	"time"

	keyvaultDomain "github.com/echocipher/carrier/internal/keyvault/domain"
)

// KeyResponse describes a vault key version. Key material, encrypted or not,
// is never included.
type KeyResponse struct {
	ID            string     `json:"id"`
	Scope         string     `json:"scope"`
	Version       uint       `json:"version"`
	Algorithm     string     `json:"algorithm"`
	Source        string     `json:"source"`
	IsActive      bool       `json:"is_active"`
	CreatedAt     time.Time  `json:"created_at"`
	DeactivatedAt *time.Time `json:"deactivated_at,omitempty"`
}

// MapKeyToResponse converts a vault key to an API response.
func MapKeyToResponse(key *keyvaultDomain.MasterKey) KeyResponse {
	return KeyResponse{
		ID:            key.ID.String(),
		Scope:         key.Scope,
		Version:       key.Version,
		Algorithm:     string(key.Algorithm),
		Source:        string(key.Source),
		IsActive:      key.IsActive,
		CreatedAt:     key.CreatedAt,
		DeactivatedAt: key.DeactivatedAt,
	}
}

// ListKeysResponse lists every version of a scope.
type ListKeysResponse struct {
	Data []KeyResponse `json:"data"`
}

// MapKeysToListResponse converts vault keys to a list response.
func MapKeysToListResponse(keys []*keyvaultDomain.MasterKey) ListKeysResponse {
	data := make([]KeyResponse, 0, len(keys))
	for _, key := range keys {
		data = append(data, MapKeyToResponse(key))
	}
	return ListKeysResponse{Data: data}
}
