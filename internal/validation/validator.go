package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	relay_errors "github.com/customeros/metricsrelay/internal/errors"
	"github.com/customeros/metricsrelay/internal/utils"
)

const uuidLength = 36

// Validate checks payload against schema and returns it unchanged on success.
// The first violated constraint is reported as a 400 validation failure.
func Validate(payload map[string]any, schema *Schema, authenticated bool) (map[string]any, error) {
	if payload == nil {
		return nil, relay_errors.Validation(`"value" must be of type object`)
	}
	if msg := validateObject("", payload, schema, authenticated); msg != "" {
		return nil, relay_errors.Validation(msg)
	}
	return payload, nil
}

// ValidateBody accepts a decoded JSON body of any shape.
func ValidateBody(body any, schema *Schema, authenticated bool) (map[string]any, error) {
	payload, ok := body.(map[string]any)
	if !ok {
		return nil, relay_errors.Validation(`"value" must be of type object`)
	}
	return Validate(payload, schema, authenticated)
}

func validateObject(prefix string, object map[string]any, schema *Schema, authenticated bool) string {
	known := map[string]bool{}
	for _, rule := range schema.Fields {
		if !rule.When.applies(authenticated) {
			continue
		}
		known[rule.Name] = true
		if msg := validateField(prefix+rule.Name, object, rule, authenticated); msg != "" {
			return msg
		}
	}

	unknown := make([]string, 0)
	for key := range object {
		if !known[key] {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	for _, key := range unknown {
		if isRuleName(schema, key) {
			// a rule exists but does not apply in this auth state
			continue
		}
		if !schema.AllowUnknown || utils.HasAnyPrefix(key, schema.ForbiddenKeyPrefixes...) {
			return fmt.Sprintf("%q is not allowed", prefix+key)
		}
	}
	return ""
}

func isRuleName(schema *Schema, key string) bool {
	for _, rule := range schema.Fields {
		if rule.Name == key {
			return true
		}
	}
	return false
}

func validateField(path string, object map[string]any, rule FieldRule, authenticated bool) string {
	value, present := object[rule.Name]
	if rule.Forbidden {
		if present {
			return fmt.Sprintf("%q is not allowed", path)
		}
		return ""
	}
	if !present {
		if rule.Required {
			return fmt.Sprintf("%q is required", path)
		}
		return ""
	}

	switch rule.Kind {
	case KindString, KindUUIDv4:
		s, ok := value.(string)
		if !ok {
			return fmt.Sprintf("%q must be a string", path)
		}
		if s == "" {
			return fmt.Sprintf("%q is not allowed to be empty", path)
		}
		if rule.Kind == KindUUIDv4 && !IsUUIDv4(s) {
			return fmt.Sprintf("%q must be a valid GUID", path)
		}
		for _, p := range rule.NotPrefix {
			if strings.HasPrefix(s, p) {
				return fmt.Sprintf("%q must not start with %q", path, p)
			}
		}
	case KindObject:
		nested, ok := value.(map[string]any)
		if !ok {
			return fmt.Sprintf("%q must be of type object", path)
		}
		if rule.Nested != nil {
			return validateObject(path+".", nested, rule.Nested, authenticated)
		}
	}
	return ""
}

// IsUUIDv4 accepts the canonical 8-4-4-4-12 form of a version 4, RFC 4122 uuid.
func IsUUIDv4(s string) bool {
	if len(s) != uuidLength {
		return false
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return false
	}
	return id.Version() == 4 && id.Variant() == uuid.RFC4122
}
