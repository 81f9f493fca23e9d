package cmd

import (
	"fmt"

	"github.com/hocestnonsatis/parallel-mengene/pkg/pipeline"
)

// logProgressBar prints a single-line, carriage-return-updated progress
// indicator. It is deliberately terse — pipeline.Coordinator already logs
// structured progress via logrus when a Logger is set.
func logProgressBar(p pipeline.Progress) {
	fmt.Printf("\r%d/%d chunks (%.1f%%)", p.ChunksDone, p.ChunksTotal, p.Fraction()*100)
	if p.ChunksDone == p.ChunksTotal {
		fmt.Println()
	}
}
