package pipeline

import (
	"fmt"

	"github.com/hocestnonsatis/parallel-mengene/pkg/pmerrors"
)

func frameCRCMismatch(index int) error {
	return pmerrors.New(pmerrors.Decompression, fmt.Sprintf("chunk %d: CRC32 mismatch after decompression", index))
}

func chunkFailed(index int, err error) error {
	return fmt.Errorf("chunk %d: %w", index, err)
}
