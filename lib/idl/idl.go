// Package idl loads Anchor interface descriptions (IDL) and encodes or decodes program data according to them.
//
// Only the legacy IDL layout is supported: instructions with isMut/isSigner account flags, account and type
// definitions of kind "struct" and a metadata.address holding the program id.
package idl

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/gagliardetto/solana-go"
)

// IDL is the interface description of a program.
type IDL struct {
	Version      string        `json:"version"`
	Name         string        `json:"name"`
	Instructions []Instruction `json:"instructions"`
	Accounts     []TypeDef     `json:"accounts"`
	Types        []TypeDef     `json:"types,omitempty"`
	Metadata     Metadata      `json:"metadata"`
}

// Metadata holds deployment details.
type Metadata struct {
	Address string `json:"address"`
}

// Instruction describes a program method.
type Instruction struct {
	Name     string               `json:"name"`
	Accounts []InstructionAccount `json:"accounts"`
	Args     []Field              `json:"args"`
}

// InstructionAccount is an account an instruction expects, in order.
type InstructionAccount struct {
	Name     string `json:"name"`
	IsMut    bool   `json:"isMut"`
	IsSigner bool   `json:"isSigner"`
}

// Field is a named and typed value.
type Field struct {
	Name string `json:"name"`
	Type Type   `json:"type"`
}

// TypeDef is a named struct layout.
type TypeDef struct {
	Name string     `json:"name"`
	Type StructType `json:"type"`
}

// StructType lists the fields of a struct in serialization order.
type StructType struct {
	Kind   string  `json:"kind"`
	Fields []Field `json:"fields"`
}

// Errors returned.
var (
	ErrNoProgramID  = errors.New("idl does not define metadata.address")
	ErrBadType      = errors.New("invalid idl type")
	ErrUnsupported  = errors.New("unsupported idl type")
	ErrNoDefinition = errors.New("definition not found in idl")
)

// Load reads and parses the IDL file at path.
func Load(path string) (*IDL, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read idl %s: %w", path, err)
	}

	return Parse(b)
}

// Parse decodes an IDL from its JSON form.
func Parse(b []byte) (*IDL, error) {
	var i IDL
	if err := json.Unmarshal(b, &i); err != nil {
		return nil, fmt.Errorf("cannot decode idl: %w", err)
	}

	for _, d := range append(append([]TypeDef{}, i.Accounts...), i.Types...) {
		if d.Type.Kind != "struct" {
			return nil, fmt.Errorf("%w: %s is of kind %q", ErrUnsupported, d.Name, d.Type.Kind)
		}
	}

	return &i, nil
}

// ProgramID returns the program address recorded in the IDL metadata.
func (i *IDL) ProgramID() (solana.PublicKey, error) {
	if i.Metadata.Address == "" {
		return solana.PublicKey{}, ErrNoProgramID
	}

	return solana.PublicKeyFromBase58(i.Metadata.Address)
}

// Instruction returns the instruction called name.
func (i *IDL) Instruction(name string) (Instruction, bool) {
	for _, ix := range i.Instructions {
		if ix.Name == name {
			return ix, true
		}
	}

	return Instruction{}, false
}

// Account returns the account layout called name.
func (i *IDL) Account(name string) (TypeDef, bool) {
	for _, a := range i.Accounts {
		if a.Name == name {
			return a, true
		}
	}

	return TypeDef{}, false
}

// typeDef returns a struct from accounts or types.
func (i *IDL) typeDef(name string) (TypeDef, bool) {
	if d, ok := i.Account(name); ok {
		return d, true
	}

	for _, d := range i.Types {
		if d.Name == name {
			return d, true
		}
	}

	return TypeDef{}, false
}
