package idl

import (
	"encoding/json"
	"fmt"
)

// Primitive type names.
const (
	Bool      = "bool"
	U8        = "u8"
	I8        = "i8"
	U16       = "u16"
	I16       = "i16"
	U32       = "u32"
	I32       = "i32"
	U64       = "u64"
	I64       = "i64"
	String    = "string"
	PublicKey = "publicKey"
	Bytes     = "bytes"
)

// Type is an IDL type: either a primitive (Name) or one of option, vec, array or defined.
type Type struct {
	Name    string
	Option  *Type
	Vec     *Type
	Array   *Type
	Len     int
	Defined string
}

// UnmarshalJSON accepts "u64", {"option":T}, {"vec":T}, {"array":[T,n]} and {"defined":"Name"}.
func (t *Type) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err == nil {
		t.Name = name

		return nil
	}

	var obj struct {
		Option  *Type             `json:"option"`
		Vec     *Type             `json:"vec"`
		Array   []json.RawMessage `json:"array"`
		Defined string            `json:"defined"`
	}

	if err := json.Unmarshal(b, &obj); err != nil {
		return fmt.Errorf("%w: %s", ErrBadType, b)
	}

	switch {
	case obj.Option != nil:
		t.Option = obj.Option
	case obj.Vec != nil:
		t.Vec = obj.Vec
	case obj.Defined != "":
		t.Defined = obj.Defined
	case len(obj.Array) == 2:
		var elem Type
		if err := json.Unmarshal(obj.Array[0], &elem); err != nil {
			return err
		}

		if err := json.Unmarshal(obj.Array[1], &t.Len); err != nil || t.Len < 0 {
			return fmt.Errorf("%w: bad array length %s", ErrBadType, obj.Array[1])
		}

		t.Array = &elem
	default:
		return fmt.Errorf("%w: %s", ErrBadType, b)
	}

	return nil
}

// MarshalJSON writes the type back in IDL form.
func (t Type) MarshalJSON() ([]byte, error) {
	switch {
	case t.Option != nil:
		return json.Marshal(map[string]interface{}{"option": t.Option})
	case t.Vec != nil:
		return json.Marshal(map[string]interface{}{"vec": t.Vec})
	case t.Array != nil:
		return json.Marshal(map[string]interface{}{"array": []interface{}{t.Array, t.Len}})
	case t.Defined != "":
		return json.Marshal(map[string]string{"defined": t.Defined})
	}

	return json.Marshal(t.Name)
}

func (t Type) String() string {
	switch {
	case t.Option != nil:
		return "option<" + t.Option.String() + ">"
	case t.Vec != nil:
		return "vec<" + t.Vec.String() + ">"
	case t.Array != nil:
		return fmt.Sprintf("[%s;%d]", t.Array, t.Len)
	case t.Defined != "":
		return t.Defined
	}

	return t.Name
}
