package cli

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"classroom-sim-service/internal/app"
	"classroom-sim-service/internal/config"
	"classroom-sim-service/internal/domain"
	"classroom-sim-service/internal/infra/memory"
	"classroom-sim-service/internal/platform/logger"
	"github.com/spf13/cobra"
)

type simulateOptions struct {
	topic        string
	objective    string
	mode         string
	explanations []string
	checks       int
	respond      bool
}

// NewSimulateCmd runs one scripted lesson without a server and prints the reflection.
func NewSimulateCmd(configPath *string) *cobra.Command {
	opts := simulateOptions{}
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Teach a scripted lesson headlessly and print the reflection as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			return runSimulation(cmd.Context(), cfg, opts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&opts.topic, "topic", "Photosynthesis", "lesson topic")
	cmd.Flags().StringVar(&opts.objective, "objective", "", "lesson objective")
	cmd.Flags().StringVar(&opts.mode, "mode", string(domain.ModeStandard), "lesson mode: quick, standard or deep")
	cmd.Flags().StringArrayVar(&opts.explanations, "explain", []string{
		"First, plants capture light because chlorophyll absorbs it. For example, a leaf in sunlight makes sugar, then stores it so that the plant can grow.",
	}, "explanation to deliver, repeatable")
	cmd.Flags().IntVar(&opts.checks, "checks", 1, "mini checks to run after the explanations")
	cmd.Flags().BoolVar(&opts.respond, "respond", true, "answer every raised hand before ending")
	return cmd
}

func runSimulation(ctx context.Context, cfg config.Config, opts simulateOptions, out io.Writer) error {
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return err
	}
	defer log.Sync()

	rules, err := loadRules(cfg)
	if err != nil {
		return err
	}
	// a scripted run has no wall clock to tick against
	rules.TickEnabled = false

	const classroomID = "simulation"
	sessions := memory.NewSessionStore(app.NewSessionFactory(rules, cfg.Classroom.Seed))
	service := app.NewClassroomService(sessions, memory.NewStateStore(), log)

	if _, err := service.Open(ctx, classroomID); err != nil {
		return err
	}
	if _, err := service.StartLesson(ctx, classroomID, domain.LessonPlan{
		Topic:     opts.topic,
		Objective: opts.objective,
		Mode:      domain.Mode(opts.mode),
	}); err != nil {
		return err
	}
	for _, text := range opts.explanations {
		if _, _, err := service.Teach(ctx, classroomID, text); err != nil {
			return err
		}
	}
	for i := 0; i < opts.checks; i++ {
		if _, _, err := service.MiniCheck(ctx, classroomID); err != nil {
			return err
		}
	}
	if opts.respond {
		for {
			_, answered, err := service.Respond(ctx, classroomID)
			if errors.Is(err, domain.ErrQueueEmpty) {
				break
			}
			if err != nil {
				return err
			}
			log.Debug("answered question", "student", answered.StudentName, "question", answered.Text)
		}
	}

	snap, reflection, err := service.EndLesson(ctx, classroomID)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Reflection *domain.Reflection `json:"reflection"`
		Students   []domain.Student   `json:"students"`
		Streak     domain.Streak      `json:"streak"`
	}{reflection, snap.Students, snap.Streak})
}
