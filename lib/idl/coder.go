package idl

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// DiscriminatorLen is the length of the prefix identifying accounts and instructions.
const DiscriminatorLen = 8

// Errors returned by the coder.
var (
	ErrDiscriminator = errors.New("data does not start with the expected discriminator")
	ErrShortData     = errors.New("data too short")
	ErrArgs          = errors.New("wrong number of arguments")
	ErrValue         = errors.New("value does not match idl type")
)

// Coder serializes accounts and instructions of one program with Borsh, as Anchor does.
type Coder struct {
	idl *IDL
}

// NewCoder returns a coder for the program described by i.
func NewCoder(i *IDL) *Coder {
	return &Coder{idl: i}
}

// IDL returns the interface description used by the coder.
func (c *Coder) IDL() *IDL {
	return c.idl
}

// AccountDiscriminator returns the first 8 bytes of sha256("account:<name>").
func AccountDiscriminator(name string) []byte {
	return sighash("account", name)
}

// InstructionDiscriminator returns the first 8 bytes of sha256("global:<snake_case name>").
func InstructionDiscriminator(name string) []byte {
	return sighash("global", snakeCase(name))
}

func sighash(namespace, name string) []byte {
	h := sha256.Sum256([]byte(namespace + ":" + name))

	return h[:DiscriminatorLen]
}

// snakeCase converts storeDetails into store_details.
func snakeCase(s string) string {
	var b strings.Builder

	prev := rune(0)

	for _, r := range s {
		if unicode.IsUpper(r) {
			if prev != 0 && prev != '_' && (unicode.IsLower(prev) || unicode.IsDigit(prev)) {
				b.WriteByte('_')
			}

			r = unicode.ToLower(r)
		}

		b.WriteRune(r)
		prev = r
	}

	return b.String()
}

// DecodeAccount checks the discriminator of data and decodes the fields of account name. Trailing bytes are
// ignored as accounts are usually allocated with spare room.
func (c *Coder) DecodeAccount(name string, data []byte) (map[string]interface{}, error) {
	def, ok := c.idl.Account(name)
	if !ok {
		return nil, fmt.Errorf("%w: account %s", ErrNoDefinition, name)
	}

	if len(data) < DiscriminatorLen {
		return nil, fmt.Errorf("%w: %d bytes for account %s", ErrShortData, len(data), name)
	}

	if !bytes.Equal(data[:DiscriminatorLen], AccountDiscriminator(name)) {
		return nil, fmt.Errorf("%w: account %s", ErrDiscriminator, name)
	}

	return c.decodeStruct(bin.NewBorshDecoder(data[DiscriminatorLen:]), def, 0)
}

// EncodeAccount serializes v as account name, discriminator included.
func (c *Coder) EncodeAccount(name string, v map[string]interface{}) ([]byte, error) {
	def, ok := c.idl.Account(name)
	if !ok {
		return nil, fmt.Errorf("%w: account %s", ErrNoDefinition, name)
	}

	buf := new(bytes.Buffer)
	buf.Write(AccountDiscriminator(name))

	if err := c.encodeStruct(bin.NewBorshEncoder(buf), def, v, 0); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// EncodeInstruction serializes the data of instruction name called with args, in IDL order.
func (c *Coder) EncodeInstruction(name string, args ...interface{}) ([]byte, error) {
	ix, ok := c.idl.Instruction(name)
	if !ok {
		return nil, fmt.Errorf("%w: instruction %s", ErrNoDefinition, name)
	}

	if len(args) != len(ix.Args) {
		return nil, fmt.Errorf("%w: %s takes %d, got %d", ErrArgs, name, len(ix.Args), len(args))
	}

	buf := new(bytes.Buffer)
	buf.Write(InstructionDiscriminator(name))

	enc := bin.NewBorshEncoder(buf)

	for i, f := range ix.Args {
		if err := c.encode(enc, f.Type, args[i], 0); err != nil {
			return nil, fmt.Errorf("%s arg %s: %w", name, f.Name, err)
		}
	}

	return buf.Bytes(), nil
}

// maxDepth bounds nested defined types so a self-referencing idl cannot loop forever.
const maxDepth = 16

func (c *Coder) decodeStruct(dec *bin.Decoder, def TypeDef, depth int) (map[string]interface{}, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("%w: %s nested too deep", ErrUnsupported, def.Name)
	}

	m := make(map[string]interface{}, len(def.Type.Fields))

	for _, f := range def.Type.Fields {
		v, err := c.decode(dec, f.Type, depth)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", def.Name, f.Name, err)
		}

		m[f.Name] = v
	}

	return m, nil
}

func (c *Coder) decode(dec *bin.Decoder, t Type, depth int) (interface{}, error) {
	switch {
	case t.Option != nil:
		tag, err := readU8(dec)
		if err != nil {
			return nil, err
		}

		switch tag {
		case 0:
			return nil, nil
		case 1:
			return c.decode(dec, *t.Option, depth)
		}

		return nil, fmt.Errorf("%w: option tag %d", ErrValue, tag)
	case t.Vec != nil:
		n, err := readLen(dec)
		if err != nil {
			return nil, err
		}

		return c.decodeSeq(dec, *t.Vec, n, depth)
	case t.Array != nil:
		return c.decodeSeq(dec, *t.Array, t.Len, depth)
	case t.Defined != "":
		def, ok := c.idl.typeDef(t.Defined)
		if !ok {
			return nil, fmt.Errorf("%w: type %s", ErrNoDefinition, t.Defined)
		}

		return c.decodeStruct(dec, def, depth+1)
	}

	return decodePrimitive(dec, t.Name)
}

func (c *Coder) decodeSeq(dec *bin.Decoder, elem Type, n, depth int) (interface{}, error) {
	if elem.Name == U8 {
		return readN(dec, n)
	}

	// the length comes from the data, check it can be satisfied before allocating
	width := c.minSize(elem, depth)
	if width < 1 {
		width = 1
	}

	if n < 0 || uint64(n)*uint64(width) > uint64(dec.Remaining()) {
		return nil, fmt.Errorf("%w: %d elements of %s, have %d bytes", ErrShortData, n, elem, dec.Remaining())
	}

	out := make([]interface{}, 0, n)

	for i := 0; i < n; i++ {
		v, err := c.decode(dec, elem, depth)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}

		out = append(out, v)
	}

	return out, nil
}

// minSize is the smallest number of bytes a value of t can be encoded in.
func (c *Coder) minSize(t Type, depth int) int {
	switch {
	case t.Option != nil:
		return 1
	case t.Vec != nil:
		return 4
	case t.Array != nil:
		return t.Len * c.minSize(*t.Array, depth)
	case t.Defined != "":
		def, ok := c.idl.typeDef(t.Defined)
		if !ok || depth > maxDepth {
			return 0
		}

		size := 0
		for _, f := range def.Type.Fields {
			size += c.minSize(f.Type, depth+1)
		}

		return size
	}

	switch t.Name {
	case Bool, U8, I8:
		return 1
	case U16, I16:
		return 2
	case U32, I32, String, Bytes:
		return 4
	case U64, I64:
		return 8
	case PublicKey:
		return solana.PublicKeyLength
	}

	return 0
}

func decodePrimitive(dec *bin.Decoder, name string) (interface{}, error) {
	switch name {
	case Bool:
		b, err := readU8(dec)
		if err != nil {
			return nil, err
		}

		if b > 1 {
			return nil, fmt.Errorf("%w: bool byte %d", ErrValue, b)
		}

		return b == 1, nil
	case U8:
		return readU8(dec)
	case I8:
		b, err := readU8(dec)

		return int8(b), err
	case U16:
		return withLen(dec, 2, func() (interface{}, error) { return dec.ReadUint16(binary.LittleEndian) })
	case I16:
		return withLen(dec, 2, func() (interface{}, error) {
			v, err := dec.ReadUint16(binary.LittleEndian)

			return int16(v), err
		})
	case U32:
		return withLen(dec, 4, func() (interface{}, error) { return dec.ReadUint32(binary.LittleEndian) })
	case I32:
		return withLen(dec, 4, func() (interface{}, error) {
			v, err := dec.ReadUint32(binary.LittleEndian)

			return int32(v), err
		})
	case U64:
		return withLen(dec, 8, func() (interface{}, error) { return dec.ReadUint64(binary.LittleEndian) })
	case I64:
		return withLen(dec, 8, func() (interface{}, error) {
			v, err := dec.ReadUint64(binary.LittleEndian)

			return int64(v), err
		})
	case String:
		n, err := readLen(dec)
		if err != nil {
			return nil, err
		}

		b, err := readN(dec, n)
		if err != nil {
			return nil, err
		}

		if !utf8.Valid(b) {
			return nil, fmt.Errorf("%w: string is not utf-8", ErrValue)
		}

		return string(b), nil
	case Bytes:
		n, err := readLen(dec)
		if err != nil {
			return nil, err
		}

		return readN(dec, n)
	case PublicKey:
		b, err := readN(dec, solana.PublicKeyLength)
		if err != nil {
			return nil, err
		}

		return solana.PublicKeyFromBytes(b), nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnsupported, name)
}

func withLen(dec *bin.Decoder, n int, read func() (interface{}, error)) (interface{}, error) {
	if dec.Remaining() < n {
		return nil, ErrShortData
	}

	return read()
}

func readU8(dec *bin.Decoder) (uint8, error) {
	if dec.Remaining() < 1 {
		return 0, ErrShortData
	}

	return dec.ReadUint8()
}

// readLen reads a Borsh u32 length prefix.
func readLen(dec *bin.Decoder) (int, error) {
	if dec.Remaining() < 4 {
		return 0, ErrShortData
	}

	n, err := dec.ReadUint32(binary.LittleEndian)
	if err != nil {
		return 0, err
	}

	return int(n), nil
}

func readN(dec *bin.Decoder, n int) ([]byte, error) {
	if n < 0 || dec.Remaining() < n {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrShortData, n, dec.Remaining())
	}

	if n == 0 {
		return []byte{}, nil
	}

	return dec.ReadNBytes(n)
}

func (c *Coder) encodeStruct(enc *bin.Encoder, def TypeDef, v map[string]interface{}, depth int) error {
	if depth > maxDepth {
		return fmt.Errorf("%w: %s nested too deep", ErrUnsupported, def.Name)
	}

	for _, f := range def.Type.Fields {
		if err := c.encode(enc, f.Type, v[f.Name], depth); err != nil {
			return fmt.Errorf("%s.%s: %w", def.Name, f.Name, err)
		}
	}

	return nil
}

func (c *Coder) encode(enc *bin.Encoder, t Type, v interface{}, depth int) error {
	switch {
	case t.Option != nil:
		if v == nil {
			return enc.WriteUint8(0)
		}

		if err := enc.WriteUint8(1); err != nil {
			return err
		}

		return c.encode(enc, *t.Option, v, depth)
	case t.Vec != nil:
		return c.encodeSeq(enc, *t.Vec, v, -1, depth)
	case t.Array != nil:
		return c.encodeSeq(enc, *t.Array, v, t.Len, depth)
	case t.Defined != "":
		def, ok := c.idl.typeDef(t.Defined)
		if !ok {
			return fmt.Errorf("%w: type %s", ErrNoDefinition, t.Defined)
		}

		m, ok := v.(map[string]interface{})
		if !ok {
			return fmt.Errorf("%w: %s wants map, got %T", ErrValue, t.Defined, v)
		}

		return c.encodeStruct(enc, def, m, depth+1)
	}

	return encodePrimitive(enc, t.Name, v)
}

// encodeSeq writes a vec (fixed < 0, length prefixed) or an array of fixed elements.
func (c *Coder) encodeSeq(enc *bin.Encoder, elem Type, v interface{}, fixed, depth int) error {
	if b, ok := v.([]byte); ok && elem.Name == U8 {
		if fixed >= 0 && len(b) != fixed {
			return fmt.Errorf("%w: array wants %d bytes, got %d", ErrValue, fixed, len(b))
		}

		if fixed < 0 {
			if err := enc.WriteUint32(uint32(len(b)), binary.LittleEndian); err != nil {
				return err
			}
		}

		return enc.WriteBytes(b, false)
	}

	s, ok := v.([]interface{})
	if !ok {
		return fmt.Errorf("%w: sequence wants []interface{}, got %T", ErrValue, v)
	}

	if fixed >= 0 && len(s) != fixed {
		return fmt.Errorf("%w: array wants %d elements, got %d", ErrValue, fixed, len(s))
	}

	if fixed < 0 {
		if err := enc.WriteUint32(uint32(len(s)), binary.LittleEndian); err != nil {
			return err
		}
	}

	for i, e := range s {
		if err := c.encode(enc, elem, e, depth); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}

	return nil
}

func encodePrimitive(enc *bin.Encoder, name string, v interface{}) error {
	switch name {
	case Bool:
		b, ok := v.(bool)
		if !ok {
			return fmt.Errorf("%w: bool, got %T", ErrValue, v)
		}

		if b {
			return enc.WriteUint8(1)
		}

		return enc.WriteUint8(0)
	case U8, U16, U32, U64:
		u, err := toUint(v, bits(name))
		if err != nil {
			return err
		}

		return writeUint(enc, u, bits(name))
	case I8, I16, I32, I64:
		i, err := toInt(v, bits(name))
		if err != nil {
			return err
		}

		return writeUint(enc, uint64(i), bits(name))
	case String:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("%w: string, got %T", ErrValue, v)
		}

		if err := enc.WriteUint32(uint32(len(s)), binary.LittleEndian); err != nil {
			return err
		}

		return enc.WriteBytes([]byte(s), false)
	case Bytes:
		b, ok := v.([]byte)
		if !ok {
			return fmt.Errorf("%w: bytes, got %T", ErrValue, v)
		}

		if err := enc.WriteUint32(uint32(len(b)), binary.LittleEndian); err != nil {
			return err
		}

		return enc.WriteBytes(b, false)
	case PublicKey:
		var pk solana.PublicKey

		switch k := v.(type) {
		case solana.PublicKey:
			pk = k
		case string:
			var err error
			if pk, err = solana.PublicKeyFromBase58(k); err != nil {
				return fmt.Errorf("%w: %v", ErrValue, err)
			}
		default:
			return fmt.Errorf("%w: publicKey, got %T", ErrValue, v)
		}

		return enc.WriteBytes(pk[:], false)
	}

	return fmt.Errorf("%w: %q", ErrUnsupported, name)
}

func bits(name string) int {
	switch name {
	case U8, I8:
		return 8
	case U16, I16:
		return 16
	case U32, I32:
		return 32
	}

	return 64
}

func writeUint(enc *bin.Encoder, u uint64, size int) error {
	switch size {
	case 8:
		return enc.WriteUint8(uint8(u))
	case 16:
		return enc.WriteUint16(uint16(u), binary.LittleEndian)
	case 32:
		return enc.WriteUint32(uint32(u), binary.LittleEndian)
	}

	return enc.WriteUint64(u, binary.LittleEndian)
}

// toUint converts the usual Go integer kinds into an unsigned value that fits in size bits.
func toUint(v interface{}, size int) (uint64, error) {
	var u uint64

	switch n := v.(type) {
	case uint8:
		u = uint64(n)
	case uint16:
		u = uint64(n)
	case uint32:
		u = uint64(n)
	case uint64:
		u = n
	case uint:
		u = uint64(n)
	case int, int8, int16, int32, int64:
		i, err := toInt(v, 64)
		if err != nil {
			return 0, err
		}

		if i < 0 {
			return 0, fmt.Errorf("%w: negative value %d for unsigned type", ErrValue, i)
		}

		u = uint64(i)
	default:
		return 0, fmt.Errorf("%w: integer, got %T", ErrValue, v)
	}

	if size < 64 && u >= 1<<uint(size) {
		return 0, fmt.Errorf("%w: %d overflows u%d", ErrValue, u, size)
	}

	return u, nil
}

func toInt(v interface{}, size int) (int64, error) {
	var i int64

	switch n := v.(type) {
	case int8:
		i = int64(n)
	case int16:
		i = int64(n)
	case int32:
		i = int64(n)
	case int64:
		i = n
	case int:
		i = int64(n)
	case uint8, uint16, uint32:
		u, _ := toUint(v, 64)
		i = int64(u)
	case uint64:
		if n > math.MaxInt64 {
			return 0, fmt.Errorf("%w: %d overflows i64", ErrValue, n)
		}

		i = int64(n)
	default:
		return 0, fmt.Errorf("%w: integer, got %T", ErrValue, v)
	}

	if size < 64 && (i < -(1<<uint(size-1)) || i >= 1<<uint(size-1)) {
		return 0, fmt.Errorf("%w: %d overflows i%d", ErrValue, i, size)
	}

	return i, nil
}
