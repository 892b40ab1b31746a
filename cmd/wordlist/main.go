package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/pbaille/wordlist/internal/api"
	"github.com/pbaille/wordlist/internal/classifier"
	"github.com/pbaille/wordlist/internal/config"
	"github.com/pbaille/wordlist/internal/domain"
	"github.com/pbaille/wordlist/internal/embedding"
	"github.com/pbaille/wordlist/internal/fetcher"
	"github.com/pbaille/wordlist/internal/logging"
	"github.com/pbaille/wordlist/internal/prompt"
	"github.com/pbaille/wordlist/internal/ranking"
	"github.com/pbaille/wordlist/internal/registry"
	"github.com/pbaille/wordlist/internal/scorer"
	"github.com/pbaille/wordlist/internal/store"
	"github.com/pbaille/wordlist/internal/wordlist"
)

var (
	dbPath     string
	configPath string
	debug      bool

	cfg    *config.AppConfig
	logger *slog.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "wordlist",
		Short:         "Crossword wordlist curation and scoring",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()

			c, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if dbPath != "" {
				c.Database.Path = dbPath
			}
			level := c.LogLevel
			if debug {
				level = "debug"
			}
			cfg = c
			logger = logging.SetDefaultCLILogger(level)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (overrides config)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "wordlist.yaml", "config file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "verbose logging")

	rootCmd.AddCommand(addSourceCmd())
	rootCmd.AddCommand(updateCluesCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(trainCmd())
	rootCmd.AddCommand(assessCmd())
	rootCmd.AddCommand(scoreCmd())
	rootCmd.AddCommand(modelsCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(histogramCmd())
	rootCmd.AddCommand(serveCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("fatal error", "err", err)
		stop()
		os.Exit(1)
	}
}

func getStore() (*store.Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(cfg.Database.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	return store.New(cfg.Database.Path)
}

func newFetcher() *fetcher.Fetcher {
	c := cfg.Clues
	return fetcher.New(fetcher.Config{
		URLTemplate: c.URLTemplate,
		MaxClues:    c.MaxClues,
		Delay:       c.Delay,
		Timeout:     c.Timeout,
		UserAgent:   c.UserAgent,
	}, logger)
}

func newBatcher() (*embedding.Batcher, *embedding.Client, error) {
	key, err := cfg.APIKey()
	if err != nil {
		return nil, nil, err
	}
	e := cfg.Embedding
	client, err := embedding.NewClient(embedding.ClientConfig{
		BaseURL: e.BaseURL,
		APIKey:  key,
		Model:   e.Model,
		Timeout: e.Timeout,
	})
	if err != nil {
		return nil, nil, err
	}
	b := embedding.NewBatcher(client, embedding.BatcherConfig{
		ChunkSize: e.ChunkSize,
		Pace:      e.Pace,
		Logger:    logger,
	})
	return b, client, nil
}

func newEncoder() *prompt.Encoder {
	return prompt.NewEncoder(cfg.Prompt.Template, cfg.Prompt.MaxClues)
}

// resolveModel returns id, or the latest model when id is 0
func resolveModel(s *store.Store, id int64) (int64, error) {
	if id != 0 {
		return id, nil
	}
	latest, err := s.LatestModelID()
	if err != nil {
		return 0, fmt.Errorf("no model given and none stored: %w", err)
	}
	return latest, nil
}

func rank(s *store.Store, modelID int64) (*ranking.Result, error) {
	rows, err := s.GetRankingRows(modelID)
	if err != nil {
		return nil, err
	}
	res, err := ranking.Normalize(rows, cfg.Ranking)
	if err != nil {
		return nil, err
	}
	if res.Degenerate {
		logger.Warn("degenerate score range, every word set to neutral", "model", modelID, "neutral", cfg.Ranking.Neutral)
	}
	logger.Debug("ranking pivot", "word", res.Pivot, "raw", res.PivotScore)
	return res, nil
}

func addSourceCmd() *cobra.Command {
	var skipClues bool

	cmd := &cobra.Command{
		Use:   "add-source NAME LINK FILE",
		Short: "Import a TEXT;INT source wordlist",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, link, path := args[0], args[1], args[2]

			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open source: %w", err)
			}
			defer f.Close()

			entries, err := wordlist.ParseSource(f)
			if err != nil {
				return err
			}

			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			sourceID, err := s.AddSource(name, link, path)
			if err != nil {
				return err
			}

			var fetch *fetcher.Fetcher
			if !skipClues {
				fetch = newFetcher()
			}

			added := 0
			for _, e := range entries {
				w, isNew, err := s.AddWord(e.Word)
				if err != nil {
					return err
				}
				if isNew {
					added++
					if fetch != nil {
						clues, err := fetch.FetchClues(cmd.Context(), w)
						if err != nil {
							return err
						}
						if err := s.SetClues(w, clues); err != nil {
							return err
						}
					}
				}
				score := e.Score
				if err := s.LinkSourceWord(sourceID, w, &score); err != nil {
					return err
				}
			}

			logger.Info("source imported", "source", name, "id", sourceID, "words", len(entries), "new", added)
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipClues, "skip-clues", false, "do not fetch clues for new words")
	return cmd
}

func updateCluesCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "update-clues",
		Short: "Fetch clues for words that have none",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			words, err := s.WordsMissingClues(limit)
			if err != nil {
				return err
			}

			fetch := newFetcher()
			found := 0
			for _, w := range words {
				clues, err := fetch.FetchClues(cmd.Context(), w)
				if err != nil {
					return err
				}
				// An empty list still bumps clues_last_updated
				if err := s.SetClues(w, clues); err != nil {
					return err
				}
				if len(clues) > 0 {
					found++
				}
				logger.Debug("clues updated", "word", w, "count", len(clues))
			}

			logger.Info("clue update done", "words", len(words), "with_clues", found)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 100, "maximum number of words to look up")
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status WORD STATUS",
		Short: "Set a word's status (approved, rejected, unchecked)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := domain.ParseStatus(args[1])
			if err != nil {
				return err
			}

			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			changed, err := s.SetStatus(args[0], status)
			if err != nil {
				return err
			}
			w := domain.Canonical(args[0])
			if !changed {
				fmt.Printf("%s already %s\n", w, status)
				return nil
			}
			fmt.Printf("%s -> %s\n", w, status)
			return nil
		},
	}
}

func trainCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a classifier on approved and rejected words",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			approved, err := s.GetWordsAndClues(domain.StatusApproved)
			if err != nil {
				return err
			}
			rejected, err := s.GetWordsAndClues(domain.StatusRejected)
			if err != nil {
				return err
			}

			batcher, client, err := newBatcher()
			if err != nil {
				return err
			}

			trainer := classifier.NewTrainer(cfg.Training, newEncoder(), batcher, logger)
			res, err := trainer.Train(cmd.Context(), approved, rejected)
			if err != nil {
				return err
			}

			md := res.Metadata
			fmt.Printf("Best parameters: %s\n", md.BestParams)
			fmt.Printf("CV accuracy:     %.4f\n", md.CVScore)
			fmt.Printf("Test accuracy:   %.4f (%d train / %d test)\n", md.TestScore, md.TrainSize, md.TestSize)
			fmt.Printf("Duration:        %s\n", md.TrainingDuration.Round(1e6))

			if !yes && !confirm("Save model? (N to reject) ") {
				fmt.Println("Model discarded")
				return nil
			}

			reg := registry.New(s, cfg.Database.ModelsDir)
			m, err := reg.Save(res.Model, md, map[string]any{
				"embedding_provider": cfg.Embedding.Provider,
				"embedding_model":    client.Model(),
				"max_clues":          cfg.Prompt.MaxClues,
			})
			if err != nil {
				return err
			}

			logger.Info("model saved", "id", m.ID, "path", m.ArtifactPath, "score", m.TrainingScore)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "save without asking")
	return cmd
}

func confirm(question string) bool {
	fmt.Print(question)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer != "n" && answer != "no"
}

func assessCmd() *cobra.Command {
	var modelID int64

	cmd := &cobra.Command{
		Use:   "assess",
		Short: "Report a stored model's accuracy on the current labels",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			id, err := resolveModel(s, modelID)
			if err != nil {
				return err
			}
			model, err := registry.New(s, cfg.Database.ModelsDir).Load(id)
			if err != nil {
				return err
			}

			approved, err := s.GetWordsAndClues(domain.StatusApproved)
			if err != nil {
				return err
			}
			rejected, err := s.GetWordsAndClues(domain.StatusRejected)
			if err != nil {
				return err
			}

			batcher, _, err := newBatcher()
			if err != nil {
				return err
			}
			trainer := classifier.NewTrainer(cfg.Training, newEncoder(), batcher, logger)
			acc, err := trainer.Assess(cmd.Context(), model, approved, rejected)
			if err != nil {
				return err
			}

			fmt.Printf("Model %d accuracy: %.4f (%d approved, %d rejected)\n", id, acc, len(approved), len(rejected))
			return nil
		},
	}

	cmd.Flags().Int64VarP(&modelID, "model", "m", 0, "model id (default latest)")
	return cmd
}

func scoreCmd() *cobra.Command {
	var (
		modelID int64
		status  string
	)

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score words that have no score under a model yet",
		RunE: func(cmd *cobra.Command, args []string) error {
			var st domain.Status
			if status != "" {
				parsed, err := domain.ParseStatus(status)
				if err != nil {
					return err
				}
				st = parsed
			}

			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			id, err := resolveModel(s, modelID)
			if err != nil {
				return err
			}
			words, err := s.GetWords(st)
			if err != nil {
				return err
			}

			batcher, _, err := newBatcher()
			if err != nil {
				return err
			}

			sc := scorer.New(s, registry.New(s, cfg.Database.ModelsDir), newEncoder(), batcher, logger)
			scores, err := sc.ScoreMissing(cmd.Context(), id, words)
			if err != nil {
				logger.Warn("scoring interrupted", "saved", len(scores))
				return err
			}

			logger.Info("scoring done", "model", id, "scored", len(scores), "words", len(words))
			return nil
		},
	}

	cmd.Flags().Int64VarP(&modelID, "model", "m", 0, "model id (default latest)")
	cmd.Flags().StringVarP(&status, "status", "s", "", "only score words with this status")
	return cmd
}

func modelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List trained models",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			models, err := s.ListModels()
			if err != nil {
				return err
			}
			if len(models) == 0 {
				fmt.Println("No models")
				return nil
			}

			for _, m := range models {
				params := ""
				if bp, ok := m.Meta["best_parameters"]; ok {
					params = fmt.Sprint(bp)
				}
				fmt.Printf("%4d  %.4f  %s  %8s  %s\n",
					m.ID, m.TrainingScore, m.TrainedAt.Format("2006-01-02 15:04"),
					m.TrainingDuration.Round(1e9), params)
			}
			return nil
		},
	}
}

func exportCmd() *cobra.Command {
	var (
		modelID int64
		outDir  string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the ranked wordlist and label lists",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			id, err := resolveModel(s, modelID)
			if err != nil {
				return err
			}
			res, err := rank(s, id)
			if err != nil {
				return err
			}
			approved, err := s.GetWords(domain.StatusApproved)
			if err != nil {
				return err
			}
			rejected, err := s.GetWords(domain.StatusRejected)
			if err != nil {
				return err
			}

			if err := os.MkdirAll(outDir, 0755); err != nil {
				return fmt.Errorf("create export dir: %w", err)
			}

			files := []struct {
				name  string
				write func(f *os.File) error
			}{
				{"ranked.txt", func(f *os.File) error { return wordlist.Write(f, res.Ranking) }},
				{"scored.json", func(f *os.File) error { return wordlist.WriteJSON(f, res.Ranking) }},
				{"approved.json", func(f *os.File) error { return wordlist.WriteWordsJSON(f, approved) }},
				{"rejected.json", func(f *os.File) error { return wordlist.WriteWordsJSON(f, rejected) }},
			}
			for _, file := range files {
				if err := writeFile(filepath.Join(outDir, file.name), file.write); err != nil {
					return err
				}
			}

			logger.Info("exported", "model", id, "dir", outDir, "words", len(res.Ranking))
			return nil
		},
	}

	cmd.Flags().Int64VarP(&modelID, "model", "m", 0, "model id (default latest)")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "output directory")
	return cmd
}

func writeFile(path string, write func(f *os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func histogramCmd() *cobra.Command {
	var (
		modelID int64
		width   int
	)

	cmd := &cobra.Command{
		Use:   "histogram",
		Short: "Print the distribution of ranked scores",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			id, err := resolveModel(s, modelID)
			if err != nil {
				return err
			}
			res, err := rank(s, id)
			if err != nil {
				return err
			}

			r := cfg.Ranking
			lo := min(r.Rejected.Lo, r.Unchecked.Lo, r.Approved.Lo)
			hi := max(r.Rejected.Hi, r.Unchecked.Hi, r.Approved.Hi)
			return ranking.WriteHistogram(os.Stdout, ranking.Histogram(res.Ranking, lo, hi, width), 60)
		},
	}

	cmd.Flags().Int64VarP(&modelID, "model", "m", 0, "model id (default latest)")
	cmd.Flags().IntVarP(&width, "width", "w", 2, "bucket width")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			if addr == "" {
				addr = cfg.Server.Addr
			}
			server := api.New(s, cfg.Ranking, addr, logger)
			err = server.Run(cmd.Context())
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "server address (overrides config)")
	return cmd
}
