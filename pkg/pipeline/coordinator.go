// Package pipeline implements the chunked parallel compression pipeline: a
// single reader producer, N compressor (or decompressor) workers, and a
// single ordered writer, wired around pkg/pma's archive framing.
package pipeline

import (
	"bufio"
	"context"
	"io"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hocestnonsatis/parallel-mengene/pkg/analyzer"
	"github.com/hocestnonsatis/parallel-mengene/pkg/chunker"
	"github.com/hocestnonsatis/parallel-mengene/pkg/codec"
	"github.com/hocestnonsatis/parallel-mengene/pkg/memstrategy"
	"github.com/hocestnonsatis/parallel-mengene/pkg/pma"
	"github.com/hocestnonsatis/parallel-mengene/pkg/pmerrors"
	"github.com/hocestnonsatis/parallel-mengene/pkg/vfs"
)

// Coordinator owns one input handle and one output writer for the duration
// of a single CompressFile or DecompressFile call, per spec §4.1's
// ownership rule. Worker goroutines hold only transient ownership of the
// chunks they are handed.
type Coordinator struct {
	fs vfs.FileSystem
}

// New returns a Coordinator backed by fs.
func New(fs vfs.FileSystem) *Coordinator {
	return &Coordinator{fs: fs}
}

// CompressFile reads inputPath, compresses it chunk by chunk according to
// opts, and atomically writes a PMA archive to outputPath. On error or
// cancellation no file is left at outputPath, and any temporary file is
// removed.
func (c *Coordinator) CompressFile(ctx context.Context, inputPath, outputPath string, opts Options) (Summary, error) {
	start := time.Now()

	info, err := c.fs.Stat(inputPath)
	if err != nil {
		return Summary{}, err
	}
	if info.IsDir {
		return Summary{}, pmerrors.New(pmerrors.InvalidInput, "input is a directory; pack it with pkg/tarpack first")
	}

	workerCount := opts.WorkerCount
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	algo := opts.Algorithm
	level := opts.Level
	if algo == 0 {
		sample, err := c.readSample(inputPath)
		if err != nil {
			return Summary{}, err
		}
		sel := analyzer.Select(analyzer.Analyze(analyzer.Sample(sample), info.Size))
		algo = sel.Algorithm
		if level == 0 {
			level = sel.Level
		}
	}
	level, err = codec.ValidateLevel(algo, level)
	if err != nil {
		return Summary{}, err
	}

	chunkSize := chunker.ChunkSize(info.Size, workerCount)
	chunkCount := chunker.ChunkCount(info.Size, chunkSize)

	strategy, err := memstrategy.ChooseForFile(info.Size, opts.MemoryBudgetFraction)
	if err != nil {
		strategy = memstrategy.StreamStrategy
	}
	if err := memstrategy.CheckBudget(uint64(chunkSize)*uint64(workerCount)*2, opts.MemoryBudgetFraction); err != nil {
		return Summary{}, err
	}

	meta := pma.Metadata{
		AlgorithmTag:    uint8(algo),
		Level:           uint8(level),
		WorkerCount:     uint16(workerCount),
		ChunkCount:      uint32(chunkCount),
		OriginalSize:    uint64(info.Size),
		CreatedUnixSecs: uint64(time.Now().Unix()),
		InnerFormatTag:  opts.InnerFormatTag,
		Filename:        filepath.Base(inputPath),
	}

	out, tempPath, err := c.fs.CreateTemp(outputPath)
	if err != nil {
		return Summary{}, err
	}
	aborted := true
	defer func() {
		if aborted {
			out.Close()
			c.fs.Remove(tempPath)
		}
	}()

	writer, err := pma.NewWriter(out, meta, !opts.NoTrailerCRC)
	if err != nil {
		return Summary{}, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	taskCh := make(chan chunkTask, 2*workerCount)
	resultCh := make(chan chunkResult, 2*workerCount)

	var producerErr error
	var producerWG sync.WaitGroup
	producerWG.Add(1)
	go func() {
		defer producerWG.Done()
		producerErr = c.produceChunks(runCtx, inputPath, info.Size, chunkSize, chunkCount, strategy, taskCh)
	}()

	go runCompressWorkers(runCtx, workerCount, taskCh, resultCh, algo, level, opts.VerifyOnWrite)

	buf := newReorderBuffer()
	var firstErr error
	var bytesWritten int64
	progressStart := time.Now()

	for res := range resultCh {
		if res.err != nil {
			if firstErr == nil {
				firstErr = chunkFailed(res.index, res.err)
			}
			cancel()
			continue
		}
		if firstErr != nil {
			continue
		}
		for _, r := range buf.Add(res) {
			if err := writer.WriteFrame(r.uncompressedSize, r.payload, r.crc32); err != nil {
				firstErr = err
				cancel()
				break
			}
			bytesWritten += int64(r.uncompressedSize)
			reportProgress(opts.Progress, chunkCount, buf.nextIndex, info.Size, bytesWritten, progressStart)
			logChunkProgress(opts.Logger, "compress", buf.nextIndex, chunkCount, algo)
		}
	}
	producerWG.Wait()

	if firstErr == nil && ctx.Err() != nil {
		firstErr = pmerrors.New(pmerrors.Cancelled, "compression cancelled")
	}
	if firstErr == nil && producerErr != nil {
		firstErr = producerErr
	}
	if firstErr != nil {
		return Summary{}, firstErr
	}

	if err := writer.Close(); err != nil {
		return Summary{}, err
	}
	if err := out.Sync(); err != nil {
		return Summary{}, pmerrors.Wrap(pmerrors.Io, "sync output before rename", err)
	}
	if err := out.Close(); err != nil {
		return Summary{}, err
	}
	if err := c.fs.Rename(tempPath, outputPath); err != nil {
		return Summary{}, err
	}
	aborted = false

	outSize := int64(0)
	if outInfo, err := c.fs.Stat(outputPath); err == nil {
		outSize = outInfo.Size
	}

	return Summary{
		InputSize:   info.Size,
		OutputSize:  outSize,
		Elapsed:     time.Since(start),
		Algorithm:   algo,
		Level:       level,
		WorkerCount: workerCount,
		ChunkCount:  chunkCount,
		Strategy:    strategy,
	}, nil
}

// DecompressFile reverses CompressFile: it reads a PMA archive from
// inputPath and writes the reconstructed bytes to outputPath.
func (c *Coordinator) DecompressFile(ctx context.Context, inputPath, outputPath string, opts Options) (Summary, error) {
	start := time.Now()

	in, err := c.fs.Open(inputPath)
	if err != nil {
		return Summary{}, err
	}
	defer in.Close()

	reader, err := pma.NewReader(in)
	if err != nil {
		return Summary{}, err
	}
	meta := reader.Metadata()

	algo := codec.Algorithm(meta.AlgorithmTag)
	if _, _, _, err := codec.LevelRange(algo); err != nil {
		return Summary{}, pmerrors.New(pmerrors.Corrupt, "archive names an unknown algorithm tag")
	}

	workerCount := opts.WorkerCount
	if workerCount < 1 {
		workerCount = int(meta.WorkerCount)
	}
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	out, tempPath, err := c.fs.CreateTemp(outputPath)
	if err != nil {
		return Summary{}, err
	}
	aborted := true
	defer func() {
		if aborted {
			out.Close()
			c.fs.Remove(tempPath)
		}
	}()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	taskCh := make(chan frameTask, 2*workerCount)
	resultCh := make(chan chunkResult, 2*workerCount)

	var producerErr error
	var producerWG sync.WaitGroup
	producerWG.Add(1)
	go func() {
		defer producerWG.Done()
		defer close(taskCh)
		for i := 0; i < int(meta.ChunkCount); i++ {
			if runCtx.Err() != nil {
				producerErr = runCtx.Err()
				return
			}
			frame, err := reader.ReadFrame()
			if err != nil {
				producerErr = err
				return
			}
			task := frameTask{
				index:            frame.Index,
				uncompressedSize: frame.UncompressedSize,
				compressed:       frame.Payload,
				expectedCRC:      frame.CRC32,
			}
			select {
			case taskCh <- task:
			case <-runCtx.Done():
				producerErr = runCtx.Err()
				return
			}
		}
	}()

	go runDecompressWorkers(runCtx, workerCount, taskCh, resultCh, algo)

	buf := newReorderBuffer()
	var firstErr error
	var bytesWritten int64
	progressStart := time.Now()

	for res := range resultCh {
		if res.err != nil {
			if firstErr == nil {
				firstErr = chunkFailed(res.index, res.err)
			}
			cancel()
			continue
		}
		if firstErr != nil {
			continue
		}
		for _, r := range buf.Add(res) {
			if _, err := out.Write(r.payload); err != nil {
				firstErr = err
				cancel()
				break
			}
			bytesWritten += int64(r.uncompressedSize)
			reportProgress(opts.Progress, int(meta.ChunkCount), buf.nextIndex, int64(meta.OriginalSize), bytesWritten, progressStart)
			logChunkProgress(opts.Logger, "decompress", buf.nextIndex, int(meta.ChunkCount), algo)
		}
	}
	producerWG.Wait()

	if firstErr == nil && ctx.Err() != nil {
		firstErr = pmerrors.New(pmerrors.Cancelled, "decompression cancelled")
	}
	if firstErr == nil && producerErr != nil {
		firstErr = producerErr
	}
	if firstErr == nil && reader.HasTrailerCRC() {
		firstErr = reader.VerifyTrailer()
	}
	if firstErr != nil {
		return Summary{}, firstErr
	}

	if err := out.Sync(); err != nil {
		return Summary{}, pmerrors.Wrap(pmerrors.Io, "sync output before rename", err)
	}
	if err := out.Close(); err != nil {
		return Summary{}, err
	}
	if err := c.fs.Rename(tempPath, outputPath); err != nil {
		return Summary{}, err
	}
	aborted = false

	return Summary{
		InputSize:   int64(meta.OriginalSize),
		OutputSize:  int64(meta.OriginalSize),
		Elapsed:     time.Since(start),
		Algorithm:   algo,
		Level:       int(meta.Level),
		WorkerCount: workerCount,
		ChunkCount:  int(meta.ChunkCount),
		Strategy:    memstrategy.StreamStrategy,
	}, nil
}

// logChunkProgress emits a Debug-level line every logInterval chunks, or on
// the final chunk. A nil logger is a no-op — pkg/pipeline never requires one.
func logChunkProgress(logger *logrus.Logger, op string, done, total int, algo codec.Algorithm) {
	if logger == nil {
		return
	}
	if done%logInterval != 0 && done != total {
		return
	}
	logger.WithFields(logrus.Fields{
		"op":        op,
		"chunk":     done,
		"total":     total,
		"algorithm": algo.String(),
	}).Debug("chunk processed")
}

func reportProgress(fn ProgressFunc, total, done int, bytesTotal, bytesDone int64, since time.Time) {
	if fn == nil {
		return
	}
	elapsed := time.Since(since)
	fn(Progress{
		ChunksTotal:     total,
		ChunksDone:      done,
		BytesTotal:      bytesTotal,
		BytesDone:       bytesDone,
		Elapsed:         elapsed,
		EstimatedRemain: estimateRemaining(elapsed, done, total),
	})
}

// readSample opens inputPath again (filesystems here support repeated
// independent opens) and reads up to analyzer.SampleSize bytes for content
// analysis, without disturbing the sequential read the producer goroutine
// will perform separately.
func (c *Coordinator) readSample(inputPath string) ([]byte, error) {
	r, err := c.fs.Open(inputPath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	buf := make([]byte, analyzer.SampleSize)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, pmerrors.Wrap(pmerrors.Io, "read sample", err)
	}
	return buf[:n], nil
}

// produceChunks reads the input in ascending chunk order and feeds
// chunkTasks to taskCh, closing it when done. For the mmap strategy against
// a real OS filesystem it reads chunk ranges directly out of the mapping;
// otherwise it reads sequentially through a buffered reader, which serves
// both the buffer and stream strategies identically (they differ only in
// how much of the file memstrategy judged safe to hold at once — the
// sequential read pattern here is bounded by the task channel's depth
// either way).
func (c *Coordinator) produceChunks(ctx context.Context, inputPath string, size int64, chunkSize, chunkCount int, strategy memstrategy.Strategy, taskCh chan<- chunkTask) error {
	defer close(taskCh)

	if strategy == memstrategy.MmapStrategy {
		if _, ok := c.fs.(vfs.OS); ok {
			if err := c.produceChunksMmap(ctx, inputPath, size, chunkSize, chunkCount, taskCh); err == nil {
				return nil
			}
			// Fall through to the buffered path if mmap could not be
			// opened (e.g. permissions); the archive is still correct,
			// just slower to produce.
		}
	}

	r, err := c.fs.Open(inputPath)
	if err != nil {
		return err
	}
	defer r.Close()

	br := bufio.NewReaderSize(r, chunkSize)
	for i := 0; i < chunkCount; i++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		start, end := chunker.Bounds(size, chunkSize, i)
		chunk := make([]byte, end-start)
		if _, err := io.ReadFull(br, chunk); err != nil {
			return pmerrors.Wrap(pmerrors.Io, "read chunk", err)
		}
		select {
		case taskCh <- chunkTask{index: i, data: chunk}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (c *Coordinator) produceChunksMmap(ctx context.Context, inputPath string, size int64, chunkSize, chunkCount int, taskCh chan<- chunkTask) error {
	mapped, err := memstrategy.OpenMapped(inputPath)
	if err != nil {
		return err
	}
	defer mapped.Close()

	for i := 0; i < chunkCount; i++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		start, end := chunker.Bounds(size, chunkSize, i)
		chunk, err := mapped.ReadRange(start, end)
		if err != nil {
			return err
		}
		select {
		case taskCh <- chunkTask{index: i, data: chunk}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
