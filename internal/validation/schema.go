package validation

// Kind is the JSON type a field must carry.
type Kind int

const (
	KindAny Kind = iota
	KindString
	KindUUIDv4
	KindObject
)

// AuthState restricts a rule to authenticated or anonymous callers.
type AuthState int

const (
	Always AuthState = iota
	WhenAuthenticated
	WhenAnonymous
)

func (a AuthState) applies(authenticated bool) bool {
	switch a {
	case WhenAuthenticated:
		return authenticated
	case WhenAnonymous:
		return !authenticated
	default:
		return true
	}
}

// FieldRule constrains a single named key of an object.
type FieldRule struct {
	Name      string
	Kind      Kind
	Required  bool
	Forbidden bool
	// NotPrefix rejects string values starting with any of the prefixes.
	NotPrefix []string
	Nested    *Schema
	When      AuthState
}

// Schema describes an object. Keys without a FieldRule are rejected unless
// AllowUnknown is set, in which case they are still rejected when they start
// with one of ForbiddenKeyPrefixes.
type Schema struct {
	Fields               []FieldRule
	AllowUnknown         bool
	ForbiddenKeyPrefixes []string
}

var propertiesSchema = &Schema{
	Fields: []FieldRule{
		{Name: "token", Forbidden: true},
		{Name: "distinct_id", Kind: KindUUIDv4, Required: true, When: WhenAnonymous},
		{Name: "distinct_id", Forbidden: true, When: WhenAuthenticated},
		{Name: "time", Forbidden: true},
		{Name: "ip", Forbidden: true},
		{Name: "name", Forbidden: true},
		{Name: "appId", Kind: KindString, Required: true},
	},
	AllowUnknown:         true,
	ForbiddenKeyPrefixes: []string{"$", "mp_"},
}

// EventSchema validates the body of POST /api/event.
var EventSchema = &Schema{
	Fields: []FieldRule{
		{Name: "event", Kind: KindString, Required: true, NotPrefix: []string{"$"}},
		{Name: "properties", Kind: KindObject, Required: true, Nested: propertiesSchema},
	},
}

// IdentifySchema validates the body of POST /api/identify.
var IdentifySchema = &Schema{
	Fields: []FieldRule{
		{Name: "anonId", Kind: KindUUIDv4, Required: true},
	},
}
