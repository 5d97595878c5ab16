package bytecode

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// cborEncMode uses canonical mode so that equal code objects always encode
// to identical bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Marshal serializes a code object (and its nested code objects) to CBOR.
func Marshal(c *CodeObject) ([]byte, error) {
	data, err := cborEncMode.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("bytecode: marshal %s: %w", c.Name, err)
	}
	return data, nil
}

// Unmarshal deserializes a code object from CBOR bytes and validates it.
func Unmarshal(data []byte) (*CodeObject, error) {
	var c CodeObject
	if err := cbor.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal code object: %w", err)
	}
	if c.Version != FormatVersion {
		return nil, fmt.Errorf("bytecode: format version %d, want %d", c.Version, FormatVersion)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("bytecode: %w", err)
	}
	return &c, nil
}
