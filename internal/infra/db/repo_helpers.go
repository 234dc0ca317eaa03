package db

import (
	"errors"
	"strings"

	"daonbridge/internal/domain"
)

var errDBUnavailable = errors.New("db unavailable")

func joinScopes(scopes domain.ScopeSet) string {
	return strings.Join(scopes.Strings(), " ")
}

func splitScopes(raw string) domain.ScopeSet {
	parts := strings.Fields(raw)
	out := make(domain.ScopeSet, 0, len(parts))
	for _, part := range parts {
		if scope, ok := domain.ParseScope(part); ok {
			out = append(out, scope)
		}
	}
	return out
}

func joinEvents(events []domain.EventType) string {
	parts := make([]string, 0, len(events))
	for _, event := range events {
		parts = append(parts, string(event))
	}
	return strings.Join(parts, " ")
}

func splitEvents(raw string) []domain.EventType {
	parts := strings.Fields(raw)
	out := make([]domain.EventType, 0, len(parts))
	for _, part := range parts {
		if event, ok := domain.ParseEventType(part); ok {
			out = append(out, event)
		}
	}
	return out
}

func stringPtrIfNotEmpty(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func stringValue(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint")
}
