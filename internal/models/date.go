package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

const DateLayout = "2006-01-02"

// DateString is a calendar date kept as YYYY-MM-DD. Older documents stored a
// full datetime or an ISO timestamp string; both are coerced on read.
type DateString string

func ParseDate(s string) (DateString, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return DateString(t.Format(DateLayout)), nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return DateString(t.UTC().Format(DateLayout)), nil
	}
	return "", fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
}

func (d DateString) String() string {
	return string(d)
}

func (d DateString) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(string(d))
}

func (d *DateString) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	rv := bson.RawValue{Type: t, Value: data}
	switch t {
	case bson.TypeNull, bson.TypeUndefined:
		*d = ""
		return nil
	case bson.TypeDateTime:
		*d = DateString(rv.Time().UTC().Format(DateLayout))
		return nil
	case bson.TypeString:
		s := rv.StringValue()
		if s == "" {
			*d = ""
			return nil
		}
		parsed, err := ParseDate(s)
		if err != nil {
			// Keep unparseable legacy values visible rather than failing the whole read.
			*d = DateString(s)
			return nil
		}
		*d = parsed
		return nil
	default:
		return fmt.Errorf("cannot decode %s into a date", t)
	}
}
