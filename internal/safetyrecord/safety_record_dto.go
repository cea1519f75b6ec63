package safetyrecord

import "go-safety/internal/daterange"

type CreateSafetyRecordRequest struct {
	Date          string `json:"date" binding:"required"`
	Area          string `json:"area" binding:"required,area"`
	Department    string `json:"department" binding:"required,min=2,max=100"`
	Name          string `json:"name" binding:"required,min=2,max=100"`
	SafetyShoes   bool   `json:"safetyShoes"`
	SafetyGlasses bool   `json:"safetyGlasses"`
	SafetyJacket  bool   `json:"safetyJacket"`
	Strength      *int   `json:"strength" binding:"omitempty,min=1,max=1000"`
}

// UpdateSafetyRecordRequest is a partial patch. Nil fields are left untouched.
type UpdateSafetyRecordRequest struct {
	Date          *string `json:"date" binding:"omitempty"`
	Area          *string `json:"area" binding:"omitempty,area"`
	Department    *string `json:"department" binding:"omitempty,min=2,max=100"`
	Name          *string `json:"name" binding:"omitempty,min=2,max=100"`
	SafetyShoes   *bool   `json:"safetyShoes"`
	SafetyGlasses *bool   `json:"safetyGlasses"`
	SafetyJacket  *bool   `json:"safetyJacket"`
	Strength      *int    `json:"strength" binding:"omitempty,min=1,max=1000"`
}

type ListSafetyRecordsRequest struct {
	daterange.Query
	Page           int    `form:"page" binding:"omitempty,min=1"`
	Limit          int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Search         string `form:"search" binding:"omitempty,max=100"`
	Area           string `form:"area" binding:"omitempty,area"`
	DefaultersOnly bool   `form:"defaultersOnly"`
	SortBy         string `form:"sortBy" binding:"omitempty,oneof=date name department area createdAt"`
	SortOrder      string `form:"sortOrder" binding:"omitempty,oneof=asc desc"`
}

type SafetyRecordResponse struct {
	ID             string  `json:"id"`
	Date           string  `json:"date"`
	Area           string  `json:"area"`
	Department     string  `json:"department"`
	Name           string  `json:"name"`
	SafetyShoes    bool    `json:"safetyShoes"`
	SafetyGlasses  bool    `json:"safetyGlasses"`
	SafetyJacket   bool    `json:"safetyJacket"`
	Strength       int     `json:"strength"`
	IsDefaulter    bool    `json:"isDefaulter"`
	ComplianceRate float64 `json:"complianceRate"`
	CreatedBy      string  `json:"createdBy"`
	CreatedAt      string  `json:"createdAt"`
	UpdatedAt      string  `json:"updatedAt"`
}

type ListSafetyRecordsResult struct {
	Records []SafetyRecordResponse
	Total   int64
	Page    int
	Limit   int
}
