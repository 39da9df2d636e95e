package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AazainKhan/luminate-ai-sub000/internal/course"
	"github.com/AazainKhan/luminate-ai-sub000/internal/diagnosis"
	"github.com/AazainKhan/luminate-ai-sub000/internal/store"
	"github.com/AazainKhan/luminate-ai-sub000/internal/student"
)

var masteryCmd = &cobra.Command{
	Use:   "mastery",
	Short: "Show a student's mastery of each concept",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sid, err := studentID(cmd)
		if err != nil {
			return err
		}
		all, _ := cmd.Flags().GetBool("all")

		c, st, students, err := openStudents(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		snap, err := students.Snapshot(cmd.Context(), sid)
		if err != nil {
			return fmt.Errorf("read mastery: %w", err)
		}
		byID := make(map[string]student.MasteryEstimate, len(snap))
		for _, m := range snap {
			byID[m.ConceptID] = m
		}
		if len(byID) == 0 && !all {
			fmt.Printf("No mastery recorded for %s yet.\n", sid)
			return nil
		}

		fmt.Printf("%-24s  %-32s  %4s  %9s  %6s  %s\n",
			"Concept", "Name", "Week", "Effective", "Stored", "Last assessed")
		fmt.Println(strings.Repeat("─", 100))
		for _, con := range c.TopologicalOrder() {
			m, ok := byID[con.ID]
			if !ok && !all {
				continue
			}
			last := "-"
			if m.LastAssessedAt != nil {
				last = m.LastAssessedAt.Local().Format("2006-01-02 15:04")
			}
			fmt.Printf("%-24s  %-32s  %4d  %8.0f%%  %5.0f%%  %s\n",
				truncate(con.ID, 24), truncate(con.Name, 32), con.Week, m.Effective*100, m.Mastery*100, last)
		}
		return nil
	},
}

var misconceptionsCmd = &cobra.Command{
	Use:   "misconceptions",
	Short: "List misconceptions detected for a student",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sid, err := studentID(cmd)
		if err != nil {
			return err
		}
		open, _ := cmd.Flags().GetBool("open")

		c, st, students, err := openStudents(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		recs, err := students.Misconceptions(cmd.Context(), sid)
		if err != nil {
			return fmt.Errorf("read misconceptions: %w", err)
		}
		sort.Slice(recs, func(i, j int) bool {
			return recs[i].LastDetectedAt.After(recs[j].LastDetectedAt)
		})

		fmt.Printf("%-28s  %-18s  %5s  %6s  %-8s  %s\n",
			"Misconception", "Concept", "Seen", "Streak", "Status", "Last seen")
		fmt.Println(strings.Repeat("─", 96))
		shown := 0
		for _, r := range recs {
			if open && r.Resolved {
				continue
			}
			status := "open"
			switch {
			case r.Resolved:
				status = "resolved"
			case r.Priority:
				status = "priority"
			}
			fmt.Printf("%-28s  %-18s  %5d  %6d  %-8s  %s\n",
				truncate(r.MisconceptionID, 28), truncate(r.ConceptID, 18), r.DetectionCount,
				r.CorrectStreak, status, r.LastDetectedAt.Local().Format("2006-01-02 15:04"))
			if m := c.Misconception(r.MisconceptionID); m != nil && verboseFlag(cmd) {
				fmt.Printf("    %s\n", m.Description)
			}
			shown++
		}
		fmt.Printf("\n%d misconceptions\n", shown)
		return nil
	},
}

func init() {
	studentFlag(masteryCmd)
	masteryCmd.Flags().BoolP("all", "a", false, "Include concepts the student has not worked on")

	studentFlag(misconceptionsCmd)
	misconceptionsCmd.Flags().Bool("open", false, "Only show unresolved misconceptions")
}

// openStudents builds a student model over the database without the
// language model or the tutoring pipeline.
func openStudents(cmd *cobra.Command) (*course.Course, *store.Store, *student.Model, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	c, err := loadCourse(cfg.Course)
	if err != nil {
		return nil, nil, nil, err
	}
	st, err := openStore(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	m := student.NewModel(cfg.Student, c, diagnosis.NewRegistry(c), st.MasteryRepo())
	return c, st, m, nil
}

func loadCourse(path string) (*course.Course, error) {
	if path == "" {
		return course.Default()
	}
	c, err := course.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load course: %w", err)
	}
	return c, nil
}
