package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var courseCmd = &cobra.Command{
	Use:   "course",
	Short: "Inspect the course definition",
}

var courseValidateCmd = &cobra.Command{
	Use:   "validate [path]",
	Short: "Check a course directory or file for errors",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("course")
		if len(args) == 1 {
			path = args[0]
		}
		c, err := loadCourse(path)
		if err != nil {
			return err
		}
		info := c.Info()
		fmt.Printf("%s %s (version %s) is valid.\n", info.Code, info.Name, info.Version)
		fmt.Printf("%d concepts, %d weeks, %d assessments, %d misconceptions, %d passages\n",
			len(c.Concepts()), len(c.Weeks()), len(c.Assessments()), len(c.Misconceptions()), len(c.Passages()))
		return nil
	},
}

var courseConceptsCmd = &cobra.Command{
	Use:   "concepts",
	Short: "List concepts in prerequisite order (optionally for one week)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		week, _ := cmd.Flags().GetInt("week")

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		c, err := loadCourse(cfg.Course)
		if err != nil {
			return err
		}

		// Header.
		fmt.Printf("%-24s  %-32s  %4s  %-6s  %s\n", "ID", "Name", "Week", "Graded", "Prerequisites")
		fmt.Println(strings.Repeat("─", 100))

		n := 0
		for _, con := range c.TopologicalOrder() {
			if week != 0 && con.Week != week {
				continue
			}
			graded := ""
			if con.Graded {
				graded = "yes"
			}
			fmt.Printf("%-24s  %-32s  %4d  %-6s  %s\n",
				truncate(con.ID, 24), truncate(con.Name, 32), con.Week, graded, strings.Join(con.Prerequisites, ", "))
			n++
		}
		if n == 0 && week != 0 {
			return fmt.Errorf("no concepts found for week %d", week)
		}
		fmt.Printf("\n%d concepts\n", n)
		return nil
	},
}

var courseScheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Show the weekly schedule and assessment due dates",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		c, err := loadCourse(cfg.Course)
		if err != nil {
			return err
		}

		info := c.Info()
		fmt.Printf("%s %s\n\n", info.Code, info.Name)
		for _, w := range c.Weeks() {
			fmt.Printf("Week %-2d  %s\n", w.Number, w.Title)
			if len(w.Topics) > 0 {
				fmt.Printf("         Topics: %s\n", strings.Join(w.Topics, ", "))
			}
		}

		fmt.Println()
		fmt.Printf("%-28s  %-10s  %-10s  %6s\n", "Assessment", "Kind", "Due", "Weight")
		fmt.Println(strings.Repeat("─", 60))
		for _, a := range c.Assessments() {
			fmt.Printf("%-28s  %-10s  %-10s  %5.0f%%\n", truncate(a.Name, 28), a.Kind, a.Due, a.Weight*100)
		}
		return nil
	},
}

func init() {
	courseConceptsCmd.Flags().IntP("week", "w", 0, "Only list concepts taught in this week")

	courseCmd.AddCommand(courseValidateCmd)
	courseCmd.AddCommand(courseConceptsCmd)
	courseCmd.AddCommand(courseScheduleCmd)
}
