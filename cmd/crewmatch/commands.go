package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/perttin/crewmatch/internal/config"
)

// wire shapes mirrored from the HTTP API.

type cliScoredResult struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Email      string   `json:"email"`
	Skills     []string `json:"skills"`
	Avail      string   `json:"availability"`
	MatchScore int      `json:"matchScore"`
	Reasons    []string `json:"reasons"`
}

type cliAssignment struct {
	Role       string           `json:"role"`
	Assigned   *cliScoredResult `json:"assigned"`
	Alternates []cliScoredResult `json:"alternates"`
	Reused     bool             `json:"reused"`
	Reason     string           `json:"reason"`
}

type cliTeam struct {
	Assignments []cliAssignment `json:"assignments"`
}

func printResult(i int, r cliScoredResult) {
	fmt.Printf("\n%s %s [%d%%]\n", colorize(colorBold, fmt.Sprintf("%d.", i+1)), r.Name, r.MatchScore)
	fmt.Printf("   Skills: %s\n", strings.Join(r.Skills, ", "))
	fmt.Printf("   Availability: %s\n", r.Avail)
	for _, reason := range r.Reasons {
		fmt.Printf("   - %s\n", reason)
	}
}

func printAssignment(a cliAssignment) {
	fmt.Printf("\n%s\n", colorize(colorBold, a.Role))
	if a.Assigned == nil {
		fmt.Printf("   %s\n", colorize(colorYellow, a.Reason))
		return
	}
	reusedNote := ""
	if a.Reused {
		reusedNote = colorize(colorYellow, " (also assigned to another role)")
	}
	fmt.Printf("   %s [%d%%]%s\n", a.Assigned.Name, a.Assigned.MatchScore, reusedNote)
	for _, reason := range a.Assigned.Reasons {
		fmt.Printf("   - %s\n", reason)
	}
	for _, alt := range a.Alternates {
		fmt.Printf("   alternate: %s [%d%%]\n", alt.Name, alt.MatchScore)
	}
}

// --- match ---

var matchCmd = &cobra.Command{
	Use:   "match <query>",
	Short: "Rank consultants against a free-text requirement",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/api/consultants/match", map[string]string{"query": query})
		if err != nil {
			return err
		}

		var result struct {
			Results []cliScoredResult `json:"results"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if len(result.Results) == 0 {
			fmt.Println("No matching consultants found.")
			return nil
		}
		for i, r := range result.Results {
			printResult(i, r)
		}
		return nil
	},
}

// --- team ---

var teamCmd = &cobra.Command{
	Use:   "team",
	Short: "Assemble a team from role definitions",
	Long: `Assemble a team from role definitions.

Roles are given as --role flags in "title:skill1,skill2" form:
  crewmatch team --role "Frontend Developer:React,TypeScript" --role "Backend Developer:Go"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		roleFlags, _ := cmd.Flags().GetStringArray("role")
		if len(roleFlags) == 0 {
			return fmt.Errorf("at least one --role is required")
		}

		type roleReq struct {
			Title  string   `json:"title"`
			Skills []string `json:"skills"`
		}
		var roles []roleReq
		for _, raw := range roleFlags {
			title, skillsStr, ok := strings.Cut(raw, ":")
			if !ok {
				return fmt.Errorf("invalid --role %q (want \"title:skill1,skill2\")", raw)
			}
			var skills []string
			for _, s := range strings.Split(skillsStr, ",") {
				if s = strings.TrimSpace(s); s != "" {
					skills = append(skills, s)
				}
			}
			roles = append(roles, roleReq{Title: strings.TrimSpace(title), Skills: skills})
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/api/consultants/match-roles", map[string]any{"roles": roles})
		if err != nil {
			return err
		}

		var assembled cliTeam
		if err := decodeJSON(resp, &assembled); err != nil {
			return err
		}
		for _, a := range assembled.Assignments {
			printAssignment(a)
		}
		return nil
	},
}

func init() {
	teamCmd.Flags().StringArray("role", nil, `role definition "title:skill1,skill2" (repeatable)`)
}

// --- chat ---

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactively describe a team and get matches",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		type historyMessage struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		}
		var history []historyMessage

		fmt.Println("Describe the team you need. Ctrl-D to quit.")
		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Print("> ")
			if !scanner.Scan() {
				fmt.Println()
				return scanner.Err()
			}
			message := strings.TrimSpace(scanner.Text())
			if message == "" {
				continue
			}

			resp, err := client.post(cmd.Context(), "/api/chat", map[string]any{
				"message": message,
				"history": history,
			})
			if err != nil {
				return err
			}

			var turn struct {
				Role       string   `json:"role"`
				Content    string   `json:"content"`
				IsComplete bool     `json:"isComplete"`
				Team       *cliTeam `json:"team"`
			}
			if err := decodeJSON(resp, &turn); err != nil {
				return err
			}

			history = append(history,
				historyMessage{Role: "user", Content: message},
				historyMessage{Role: turn.Role, Content: turn.Content},
			)

			fmt.Printf("%s %s\n", colorize(colorCyan, "assistant:"), turn.Content)

			if turn.IsComplete {
				if turn.Team != nil {
					for _, a := range turn.Team.Assignments {
						printAssignment(a)
					}
				}
				return nil
			}
		}
	},
}

// --- consultants ---

var consultantsCmd = &cobra.Command{
	Use:   "consultants",
	Short: "Manage consultant profiles",
}

var consultantsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all consultant profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/api/consultants")
		if err != nil {
			return err
		}

		var consultants []struct {
			ID           string   `json:"id"`
			Name         string   `json:"name"`
			Skills       []string `json:"skills"`
			Availability string   `json:"availability"`
		}
		if err := decodeJSON(resp, &consultants); err != nil {
			return err
		}

		if len(consultants) == 0 {
			fmt.Println("No consultants found.")
			return nil
		}
		for _, c := range consultants {
			fmt.Printf("%s  %-24s %-12s %s\n",
				colorize(colorCyan, shortID(c.ID)),
				c.Name,
				c.Availability,
				strings.Join(c.Skills, ", "),
			)
		}
		return nil
	},
}

var consultantsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a consultant profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		email, _ := cmd.Flags().GetString("email")
		skillsStr, _ := cmd.Flags().GetString("skills")
		availability, _ := cmd.Flags().GetString("availability")
		experience, _ := cmd.Flags().GetString("experience")

		if name == "" || skillsStr == "" {
			return fmt.Errorf("--name and --skills are required")
		}
		var skills []string
		for _, s := range strings.Split(skillsStr, ",") {
			if s = strings.TrimSpace(s); s != "" {
				skills = append(skills, s)
			}
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/api/consultants", map[string]any{
			"name":         name,
			"email":        email,
			"skills":       skills,
			"availability": availability,
			"experience":   experience,
		})
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		printSuccess("Added consultant %s", result["id"])
		return nil
	},
}

var consultantsResumeCmd = &cobra.Command{
	Use:   "resume <id> <file>",
	Short: "Attach a resume (PDF, HTML or text) to a consultant",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, file := args[0], args[1]

		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("reading resume: %w", err)
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := fmt.Sprintf("/api/consultants/%s/resume?filename=%s", id, filepath.Base(file))
		resp, err := client.postRaw(cmd.Context(), path, data)
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		printSuccess("Resume indexed for consultant %s", id)
		return nil
	},
}

func init() {
	consultantsAddCmd.Flags().String("name", "", "consultant name (required)")
	consultantsAddCmd.Flags().String("email", "", "contact email")
	consultantsAddCmd.Flags().String("skills", "", "comma-separated skills (required)")
	consultantsAddCmd.Flags().String("availability", "available", "availability: available, busy or unavailable")
	consultantsAddCmd.Flags().String("experience", "", "free-text experience summary")

	consultantsCmd.AddCommand(consultantsListCmd)
	consultantsCmd.AddCommand(consultantsAddCmd)
	consultantsCmd.AddCommand(consultantsResumeCmd)
}

// --- overview ---

var overviewCmd = &cobra.Command{
	Use:   "overview",
	Short: "Show consultant pool statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/api/overview")
		if err != nil {
			return err
		}

		var overview struct {
			ConsultantCount   int `json:"consultantCount"`
			UniqueSkillsCount int `json:"uniqueSkillsCount"`
			TopSkills         []struct {
				Skill string `json:"skill"`
				Count int    `json:"count"`
			} `json:"topSkills"`
		}
		if err := decodeJSON(resp, &overview); err != nil {
			return err
		}

		printStatus("Consultants", "%d", overview.ConsultantCount)
		printStatus("Unique skills", "%d", overview.UniqueSkillsCount)
		for _, s := range overview.TopSkills {
			fmt.Printf("    %-20s %d\n", s.Skill, s.Count)
		}
		return nil
	},
}

// --- seed ---

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load consultant profiles from a JSON file",
	Long: `Load consultant profiles from a JSON file.

The file holds a JSON array of consultant objects:
  [{"name": "Jane Doe", "skills": ["React", "Go"], "availability": "available"}]`,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		if file == "" {
			return fmt.Errorf("--file is required")
		}

		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("reading seed file: %w", err)
		}
		var consultants []map[string]any
		if err := json.Unmarshal(data, &consultants); err != nil {
			return fmt.Errorf("parsing seed file: %w", err)
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		printStep("Seeding %d consultants...", len(consultants))
		var failed int
		for _, c := range consultants {
			resp, err := client.post(cmd.Context(), "/api/consultants", c)
			if err != nil {
				return err
			}
			var result map[string]string
			if err := decodeJSON(resp, &result); err != nil {
				printError("skipping %v: %v", c["name"], err)
				failed++
			}
		}
		printSuccess("Seeded %d consultants (%d failed)", len(consultants)-failed, failed)
		return nil
	},
}

func init() {
	seedCmd.Flags().String("file", "", "path to a JSON file with consultant profiles")
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configSetTokenCmd = &cobra.Command{
	Use:   "set-token <token>",
	Short: "Store the API bearer token in the platform secret store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.SetToken(args[0]); err != nil {
			return err
		}
		printSuccess("API token stored")
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configSetTokenCmd)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
