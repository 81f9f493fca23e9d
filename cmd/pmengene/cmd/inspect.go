package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/hocestnonsatis/parallel-mengene/pkg/pma"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <archive>",
	Short: "Print a PMA archive's metadata without decompressing it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("inspect: %w", err)
		}
		defer f.Close()

		reader, err := pma.NewReader(f)
		if err != nil {
			return fmt.Errorf("inspect: %w", err)
		}
		meta := reader.Metadata()

		fmt.Printf("filename:         %s\n", meta.Filename)
		fmt.Printf("algorithm:        %s\n", pma.AlgorithmTagName(meta.AlgorithmTag))
		fmt.Printf("level:            %d\n", meta.Level)
		fmt.Printf("worker count:     %d\n", meta.WorkerCount)
		fmt.Printf("chunk count:      %d\n", meta.ChunkCount)
		fmt.Printf("original size:    %d bytes\n", meta.OriginalSize)
		fmt.Printf("created:          %s\n", time.Unix(int64(meta.CreatedUnixSecs), 0).UTC().Format(time.RFC3339))
		fmt.Printf("inner format:     %s\n", innerFormatName(meta.InnerFormatTag))
		fmt.Printf("trailer CRC32:    %t\n", reader.HasTrailerCRC())
		return nil
	},
}

func innerFormatName(tag uint8) string {
	switch tag {
	case pma.InnerFormatRaw:
		return "raw"
	case pma.InnerFormatTar:
		return "tar (packed directory)"
	default:
		return fmt.Sprintf("unknown(%d)", tag)
	}
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
