package pipeline

import (
	"bytes"
	"context"
	"hash/crc32"
	"sync"

	"github.com/hocestnonsatis/parallel-mengene/pkg/codec"
	"github.com/hocestnonsatis/parallel-mengene/pkg/pmerrors"
)

// runCompressWorkers starts workerCount goroutines, each pulling chunkTasks
// off taskCh and compressing them independently, per spec §4.5's fan-out
// model (parallel OS threads, no cooperative yielding within a chunk). When
// verifyOnWrite is set, each worker immediately decompresses its own output
// and compares it against the source chunk before reporting success, per
// spec §4.8's verify_on_write option. It returns once every worker has
// exited, after resultCh has been closed.
func runCompressWorkers(ctx context.Context, workerCount int, taskCh <-chan chunkTask, resultCh chan<- chunkResult, algo codec.Algorithm, level int, verifyOnWrite bool) {
	var wg sync.WaitGroup
	wg.Add(workerCount)
	for i := 0; i < workerCount; i++ {
		go func() {
			defer wg.Done()
			for task := range taskCh {
				select {
				case <-ctx.Done():
					return
				default:
				}
				compressed, err := codec.Compress(algo, level, task.data)
				result := chunkResult{index: task.index}
				if err != nil {
					result.err = err
				} else if verifyOnWrite {
					if verifyErr := verifyCompressedChunk(algo, compressed, task.data); verifyErr != nil {
						result.err = verifyErr
					} else {
						result.uncompressedSize = uint32(len(task.data))
						result.payload = compressed
						result.crc32 = crc32.ChecksumIEEE(task.data)
					}
				} else {
					result.uncompressedSize = uint32(len(task.data))
					result.payload = compressed
					result.crc32 = crc32.ChecksumIEEE(task.data)
				}
				select {
				case resultCh <- result:
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	wg.Wait()
	close(resultCh)
}

// verifyCompressedChunk re-decompresses compressed and compares it against
// original, returning a pmerrors.Compression error on any mismatch.
func verifyCompressedChunk(algo codec.Algorithm, compressed, original []byte) error {
	roundTripped, err := codec.Decompress(algo, compressed, len(original))
	if err != nil {
		return pmerrors.Wrap(pmerrors.Compression, "verify_on_write: re-decompress failed", err)
	}
	if !bytes.Equal(roundTripped, original) {
		return pmerrors.New(pmerrors.Compression, "verify_on_write: decompressed chunk does not match source bytes")
	}
	return nil
}

// runDecompressWorkers is runCompressWorkers's mirror image for reading: it
// decompresses each frame and verifies the frame's CRC32 against the
// decompressed bytes before handing the result onward.
func runDecompressWorkers(ctx context.Context, workerCount int, taskCh <-chan frameTask, resultCh chan<- chunkResult, algo codec.Algorithm) {
	var wg sync.WaitGroup
	wg.Add(workerCount)
	for i := 0; i < workerCount; i++ {
		go func() {
			defer wg.Done()
			for task := range taskCh {
				select {
				case <-ctx.Done():
					return
				default:
				}
				result := chunkResult{index: task.index, uncompressedSize: task.uncompressedSize}
				decompressed, err := codec.Decompress(algo, task.compressed, int(task.uncompressedSize))
				if err != nil {
					result.err = err
				} else if crc32.ChecksumIEEE(decompressed) != task.expectedCRC {
					result.err = frameCRCMismatch(task.index)
				} else {
					result.payload = decompressed
					result.crc32 = task.expectedCRC
				}
				select {
				case resultCh <- result:
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	wg.Wait()
	close(resultCh)
}
