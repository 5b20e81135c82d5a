// Package common holds the shared scalar types and generic request/response
// shapes used across the CiteScope citation-analysis pipeline.  Nothing in
// this package imports from internal/; it is the dependency floor.
package common

import (
	"time"
)

// ID is a string alias for UUID v4.
type ID string

// UserID is a string alias for a user identifier.
type UserID string

// TenantID is a string alias for a tenant identifier.
type TenantID string

// ProjectID is a string alias for a project (workspace) identifier.
type ProjectID string

// SearchHistoryID identifies one citation-search session.  Every job, match,
// and combined-analysis record in the pipeline is owned by exactly one
// search session.
type SearchHistoryID string

// Scope carries the tenancy context resolved by the auth/tenant middleware.
// The pipeline trusts this value and never re-derives tenancy itself; every
// repository read and write is filtered by it.
type Scope struct {
	TenantID  TenantID  `json:"tenant_id"`
	ProjectID ProjectID `json:"project_id"`
	UserID    UserID    `json:"user_id,omitempty"`
}

// IsZero reports whether the scope carries no tenant identity.
func (s Scope) IsZero() bool {
	return s.TenantID == "" && s.ProjectID == ""
}

// Metadata is an open-ended key-value bag.
type Metadata map[string]interface{}

// Pagination defines parameters for paginated requests.
type Pagination struct {
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total,omitempty"`
}

// Limit returns the effective page size, clamped to [1, 200].
func (p Pagination) Limit() int {
	switch {
	case p.PageSize <= 0:
		return 20
	case p.PageSize > 200:
		return 200
	default:
		return p.PageSize
	}
}

// Offset returns the row offset implied by Page and PageSize.
func (p Pagination) Offset() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit()
}

// SortOrder defines the direction of sorting.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ErrorDetail provides structured error information for API responses.
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// APIResponse is the generic wrapper for all API responses.
type APIResponse[T any] struct {
	Success    bool         `json:"success"`
	Data       T            `json:"data,omitempty"`
	Error      *ErrorDetail `json:"error,omitempty"`
	Pagination *Pagination  `json:"pagination,omitempty"`
	RequestID  string       `json:"request_id,omitempty"`
	Timestamp  time.Time    `json:"timestamp"`
}

// HealthStatus indicates the health of a component or service.
type HealthStatus string

const (
	HealthOK       HealthStatus = "ok"
	HealthDegraded HealthStatus = "degraded"
	HealthDown     HealthStatus = "down"
)

//Personal.AI order the ending
