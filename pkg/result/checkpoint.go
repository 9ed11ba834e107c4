package result

import (
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"

	"github.com/oisee/algopt/pkg/inst"
)

// Checkpoint holds state for resuming a search. Length and Digits name the
// next candidate to evaluate; everything before it has been checked.
type Checkpoint struct {
	Set       string       `cbor:"1,keyasint"`
	Layout    inst.Layout  `cbor:"2,keyasint"`
	MaxLen    int          `cbor:"3,keyasint"`
	Reference inst.Program `cbor:"4,keyasint"`

	Length int      `cbor:"5,keyasint"`
	Digits []uint64 `cbor:"6,keyasint"`

	ReferenceSteps uint64       `cbor:"7,keyasint"`
	Best           inst.Program `cbor:"8,keyasint"`
	BestSteps      uint64       `cbor:"9,keyasint"`
	Checked        uint64       `cbor:"10,keyasint"`
	Equivalent     uint64       `cbor:"11,keyasint"`
	Findings       []Finding    `cbor:"12,keyasint,omitempty"`
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("result: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalCheckpoint serializes a checkpoint to canonical CBOR bytes.
func MarshalCheckpoint(ckpt *Checkpoint) ([]byte, error) {
	return cborEncMode.Marshal(ckpt)
}

// UnmarshalCheckpoint deserializes a checkpoint from CBOR bytes.
func UnmarshalCheckpoint(data []byte) (*Checkpoint, error) {
	var c Checkpoint
	if err := cbor.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("result: unmarshal checkpoint: %w", err)
	}
	return &c, nil
}

// SaveCheckpoint writes search state to a file. The file is replaced
// atomically so an interrupted save keeps the previous checkpoint.
func SaveCheckpoint(path string, ckpt *Checkpoint) error {
	data, err := MarshalCheckpoint(ckpt)
	if err != nil {
		return fmt.Errorf("result: marshal checkpoint: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// LoadCheckpoint loads search state from a file.
func LoadCheckpoint(path string) (*Checkpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return UnmarshalCheckpoint(data)
}
