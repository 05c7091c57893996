package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"f1-rag-go/pkg/storage"
	"f1-rag-go/pkg/tasks"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func (c *cli) corpusTask(path, object string) tasks.IngestionTask {
	task := tasks.IngestionTask{
		TaskID:      uuid.NewString(),
		Source:      tasks.SourceFile,
		Location:    c.cfg.RAG.CorpusPath,
		RequestedAt: time.Now().UTC(),
	}
	if path != "" {
		task.Location = path
	}
	if object != "" {
		task.Source = tasks.SourceMinIO
		task.Location = object
	}
	return task
}

// ensureData ingests the configured corpus when the index is empty.
func (c *cli) ensureData(ctx context.Context, cmd *cobra.Command) error {
	if c.app.Ingest.DataExists(ctx) {
		return nil
	}
	result, err := c.app.Processor.Run(ctx, c.corpusTask("", ""))
	if err != nil {
		return fmt.Errorf("ingest corpus: %w", err)
	}
	cmd.Printf("Ingested %d chunks from %s\n\n", result.DocumentsStored, c.cfg.RAG.CorpusPath)
	return nil
}

func (c *cli) ingestCmd() *cobra.Command {
	var path, object string
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Chunk, embed and index a corpus file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := c.app.Processor.Run(cmd.Context(), c.corpusTask(path, object))
			if err != nil {
				return err
			}
			cmd.Printf("Chunks: %d  Stored: %d  Failed: %d\n", result.DocumentsProcessed, result.DocumentsStored, result.ChunksFailed)
			return nil
		},
	}
	cmd.Flags().StringVarP(&path, "file", "f", "", "corpus YAML file (defaults to rag.corpus_path)")
	cmd.Flags().StringVar(&object, "object", "", "read the corpus from this MinIO object instead")
	return cmd
}

func (c *cli) askCmd() *cobra.Command {
	var conversationID string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer a question from the knowledge base",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := c.ensureData(ctx, cmd); err != nil {
				return err
			}
			resp, err := c.app.RAG.ProcessQuery(ctx, args[0], conversationID)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd, resp)
			}
			cmd.Println(resp.Response)
			if len(resp.Sources) > 0 {
				cmd.Println()
				cmd.Println("Sources:")
				for i, s := range resp.Sources {
					cmd.Printf("  [%d] %s (%.3f)\n", i+1, s.Title, s.Score)
				}
			}
			cmd.Printf("\nConversation: %s\n", resp.ConversationID)
			return nil
		},
	}
	cmd.Flags().StringVar(&conversationID, "conversation", "", "continue an existing conversation")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output the full response as JSON")
	return cmd
}

func (c *cli) searchCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Show the chunks closest to a query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := c.ensureData(ctx, cmd); err != nil {
				return err
			}
			hits, err := c.app.Search.Search(ctx, args[0], limit)
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}
			if len(hits) == 0 {
				cmd.Println("No results found.")
				return nil
			}
			for i, h := range hits {
				cmd.Printf("  [%d] %s (%.3f)\n", i+1, h.Metadata.Title, h.Score)
				cmd.Printf("      %s\n", h.Metadata.Content)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "maximum number of results")
	return cmd
}

func (c *cli) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print index statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printJSON(cmd, c.app.Ingest.CollectionStats(cmd.Context()))
		},
	}
}

func (c *cli) chunksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chunks [document-id]",
		Short: "Print the stored chunks of one document (needs mysql)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := c.app.Ingest.DocumentChunks(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, records)
		},
	}
}

func (c *cli) historyCmd() *cobra.Command {
	var summary bool
	cmd := &cobra.Command{
		Use:   "history [conversation-id]",
		Short: "Print a conversation's turns (needs a shared store such as redis)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if summary {
				s, err := c.app.Conversations.Summarize(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd, s)
			}
			history, err := c.app.Conversations.GetHistory(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, history)
		},
	}
	cmd.Flags().BoolVar(&summary, "summary", false, "print the summary instead of the turns")
	return cmd
}

func (c *cli) enqueueCmd() *cobra.Command {
	var path, object string
	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Send an ingestion task to Kafka for the server to process",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if c.app.Producer == nil {
				return errors.New("kafka is not enabled")
			}
			task := c.corpusTask(path, object)
			if err := c.app.Producer.ProduceIngestionTask(cmd.Context(), task); err != nil {
				return fmt.Errorf("enqueue task: %w", err)
			}
			cmd.Printf("Enqueued task %s\n", task.TaskID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&path, "file", "f", "", "corpus path as seen by the server")
	cmd.Flags().StringVar(&object, "object", "", "MinIO object holding the corpus")
	return cmd
}

func (c *cli) uploadCmd() *cobra.Command {
	var object string
	cmd := &cobra.Command{
		Use:   "upload [corpus-file]",
		Short: "Upload a corpus file to MinIO",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.app.MinIO == nil {
				return errors.New("minio is not enabled")
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if object == "" {
				object = "corpus/" + filepath.Base(args[0])
			}
			if err := storage.PutObject(cmd.Context(), c.app.MinIO, c.cfg.MinIO.BucketName, object, data, "application/yaml"); err != nil {
				return err
			}
			cmd.Printf("Uploaded %s to %s/%s\n", args[0], c.cfg.MinIO.BucketName, object)
			return nil
		},
	}
	cmd.Flags().StringVar(&object, "object", "", "object name (defaults to corpus/<file name>)")
	return cmd
}
