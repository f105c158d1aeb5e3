// Package identity reconciles the two shapes a document id can take in the
// store: the canonical 24 character hex string and the native ObjectID.
//
// Historical write paths stored doctor and patient references in either form,
// sometimes within the same collection. ID decodes both, always encodes the
// native form, and MatchAny builds filters that hit documents written either
// way. MatchAny is a compatibility shim: it can go once `migrate-ids --dry-run`
// reports zero string-form references.
package identity

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var hexPattern = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)

// ErrInvalid is returned for identifiers that are not 24 hex characters.
var ErrInvalid = errors.New("invalid object id")

// ID is a normalized document identifier. The zero value means "absent".
type ID struct {
	oid primitive.ObjectID
}

// IsValid reports whether s has the canonical object id shape.
func IsValid(s string) bool {
	return hexPattern.MatchString(s)
}

// Parse validates s and returns its normalized form.
func Parse(s string) (ID, error) {
	s = strings.TrimSpace(s)
	if !IsValid(s) {
		return ID{}, fmt.Errorf("%w: %q", ErrInvalid, s)
	}
	oid, err := primitive.ObjectIDFromHex(strings.ToLower(s))
	if err != nil {
		return ID{}, fmt.Errorf("%w: %q", ErrInvalid, s)
	}
	return ID{oid: oid}, nil
}

// MustParse is Parse for constants; it panics on invalid input.
func MustParse(s string) ID {
	id, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

// ParseMany parses a list of raw identifiers as they arrive in query strings.
// Blank entries and the literals "undefined" and "null" (what browsers send
// for unset values) are skipped; duplicates are dropped. Any other malformed
// entry fails the whole list.
func ParseMany(raw []string) ([]ID, error) {
	seen := make(map[primitive.ObjectID]struct{}, len(raw))
	ids := make([]ID, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if unset(r) {
			continue
		}
		id, err := Parse(r)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[id.oid]; dup {
			continue
		}
		seen[id.oid] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

func unset(s string) bool {
	return s == "" || s == "undefined" || s == "null"
}

// FromObjectID wraps a native id.
func FromObjectID(oid primitive.ObjectID) ID {
	return ID{oid: oid}
}

// New returns a freshly generated id.
func New() ID {
	return ID{oid: primitive.NewObjectID()}
}

// Hex returns the canonical lower-case string form, or "" for the zero ID.
func (id ID) Hex() string {
	if id.IsZero() {
		return ""
	}
	return id.oid.Hex()
}

func (id ID) String() string {
	return id.Hex()
}

// ObjectID returns the native form.
func (id ID) ObjectID() primitive.ObjectID {
	return id.oid
}

// IsZero implements bson's Zeroer so omitempty drops absent references.
func (id ID) IsZero() bool {
	return id.oid.IsZero()
}

// Forms returns both stored representations of id.
func (id ID) Forms() bson.A {
	return bson.A{id.oid.Hex(), id.oid}
}

// MatchAny builds {field: {$in: [...]}} over both representations of every id.
func MatchAny(field string, ids ...ID) bson.M {
	forms := make(bson.A, 0, len(ids)*2)
	for _, id := range ids {
		forms = append(forms, id.Forms()...)
	}
	return bson.M{field: bson.M{"$in": forms}}
}

// Hexes returns the canonical string form of each id.
func Hexes(ids []ID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.Hex()
	}
	return out
}

// MarshalBSONValue always writes the native form; absent ids are written as null.
func (id ID) MarshalBSONValue() (bsontype.Type, []byte, error) {
	if id.IsZero() {
		return bson.TypeNull, nil, nil
	}
	return bson.MarshalValue(id.oid)
}

// UnmarshalBSONValue accepts the native form, the hex string form, the
// extended-JSON {"$oid": ...} document some import tools produced, and null.
// The strings "undefined" and "null" that browsers wrote for unset fields
// decode as absent.
func (id *ID) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	rv := bson.RawValue{Type: t, Value: data}
	switch t {
	case bson.TypeNull, bson.TypeUndefined:
		*id = ID{}
		return nil
	case bson.TypeObjectID:
		oid, ok := rv.ObjectIDOK()
		if !ok {
			return fmt.Errorf("%w: malformed objectid value", ErrInvalid)
		}
		*id = ID{oid: oid}
		return nil
	case bson.TypeString:
		s, _ := rv.StringValueOK()
		if unset(strings.TrimSpace(s)) {
			*id = ID{}
			return nil
		}
		parsed, err := Parse(s)
		if err != nil {
			return err
		}
		*id = parsed
		return nil
	case bson.TypeEmbeddedDocument:
		doc, _ := rv.DocumentOK()
		s, ok := doc.Lookup("$oid").StringValueOK()
		if !ok {
			return fmt.Errorf("%w: embedded document without $oid", ErrInvalid)
		}
		parsed, err := Parse(s)
		if err != nil {
			return err
		}
		*id = parsed
		return nil
	default:
		return fmt.Errorf("%w: unsupported bson type %s", ErrInvalid, t)
	}
}

// MarshalJSON writes the hex string, or null for the zero ID.
func (id ID) MarshalJSON() ([]byte, error) {
	if id.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + id.oid.Hex() + `"`), nil
}

// UnmarshalJSON accepts a hex string or null.
func (id *ID) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" || s == `""` {
		*id = ID{}
		return nil
	}
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("%w: expected string", ErrInvalid)
	}
	parsed, err := Parse(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
