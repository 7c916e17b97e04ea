package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"taskboard/internal/app"
	"taskboard/internal/columns"
	"taskboard/internal/config"
	"taskboard/internal/db"
	"taskboard/internal/domain"
	"taskboard/internal/engine"
	"taskboard/internal/migrate"
	"taskboard/internal/repo"
	"taskboard/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "tb",
	Short: "Taskboard CLI",
	Long: `Taskboard manages kanban boards with hierarchical tasks.
- Workspace: the .taskboard directory holding the database; taskboard.yml next to it configures the server and defaults.
- Boards: kanban boards with TODO / IN_PROGRESS / DONE columns; boards can live in folders.
- Tasks: work items with generated keys like RUN-001; subtasks nest under their parent and share its key family.
- Schedule: tasks carry an optional schedule date, viewable across boards with 'tb schedule'.
- Event log: diary of changes, view with 'tb log tail'.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("TASKBOARD")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "actor identifier")
	rootCmd.PersistentFlags().StringP("board", "b", "", "board id or name")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
	_ = viper.BindPFlag("board", rootCmd.PersistentFlags().Lookup("board"))
}

func registerCommands() {
	rootCmd.AddCommand(boardCmd())
	rootCmd.AddCommand(folderCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(labelCmd())
	rootCmd.AddCommand(scheduleCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(apikeyCmd())
	rootCmd.AddCommand(serveCmd())
}

func boardCmd() *cobra.Command {
	brd := &cobra.Command{Use: "board", Short: "Manage boards"}
	brd.AddCommand(boardListCmd())
	brd.AddCommand(boardCreateCmd())
	brd.AddCommand(boardShowCmd())
	brd.AddCommand(boardUpdateCmd())
	brd.AddCommand(boardDeleteCmd())
	return brd
}

func boardListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List boards",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListBoards(ctx, "")
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Folder"})
				for _, b := range items {
					folder := ""
					if b.FolderID != nil {
						folder = *b.FolderID
					}
					tw.AppendRow(table.Row{b.ID, b.Name, folder})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func boardCreateCmd() *cobra.Command {
	var name, folderID string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create board",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return fmt.Errorf("--name required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				var folder *string
				if folderID != "" {
					folder = &folderID
				}
				b, err := e.CreateBoard(ctx, name, folder, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSON(b)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "board name")
	cmd.Flags().StringVar(&folderID, "folder", "", "folder id")
	return cmd
}

func boardShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the active board as columns",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				board, err := app.ResolveBoard(ctx, e, viper.GetString("board"), viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				tasks, err := e.Repo.ListTasks(ctx, repo.TaskFilters{BoardID: board.ID})
				if err != nil {
					return err
				}
				cols := columns.Build(tasks)
				if viper.GetBool("json") {
					return printJSON(cols)
				}
				renderColumns(board.Name, cols)
				return nil
			})
		},
	}
	return cmd
}

func boardUpdateCmd() *cobra.Command {
	var name, folderID string
	cmd := &cobra.Command{
		Use:   "update <board-id>",
		Short: "Rename a board or move it between folders",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				var namePtr, folderPtr *string
				if cmd.Flags().Changed("name") {
					namePtr = &name
				}
				if cmd.Flags().Changed("folder") {
					folderPtr = &folderID
				}
				b, err := e.UpdateBoard(ctx, args[0], namePtr, folderPtr, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSON(b)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new board name")
	cmd.Flags().StringVar(&folderID, "folder", "", "folder id; empty detaches")
	return cmd
}

func boardDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <board-id>",
		Short: "Delete board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteBoard(ctx, args[0], viper.GetString("actor-id"))
			})
		},
	}
	return cmd
}

func folderCmd() *cobra.Command {
	fld := &cobra.Command{Use: "folder", Short: "Manage folders"}
	fld.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List folders",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListFolders(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	})
	var name string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create folder",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return fmt.Errorf("--name required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				f, err := e.CreateFolder(ctx, name, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSON(f)
			})
		},
	}
	create.Flags().StringVar(&name, "name", "", "folder name")
	fld.AddCommand(create)
	fld.AddCommand(&cobra.Command{
		Use:   "delete <folder-id>",
		Short: "Delete folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteFolder(ctx, args[0], viper.GetString("actor-id"))
			})
		},
	})
	fld.AddCommand(&cobra.Command{
		Use:   "board <folder-id>",
		Short: "Show every board in a folder, grouped",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				boards, err := e.Repo.ListBoards(ctx, args[0])
				if err != nil {
					return err
				}
				var tasks []domain.Task
				for _, b := range boards {
					bt, err := e.Repo.ListTasks(ctx, repo.TaskFilters{BoardID: b.ID})
					if err != nil {
						return err
					}
					tasks = append(tasks, bt...)
				}
				names, err := e.Repo.BoardNames(ctx)
				if err != nil {
					return err
				}
				groups := columns.BuildGroups(tasks, func(id string) string { return names[id] })
				if viper.GetBool("json") {
					return printJSON(groups)
				}
				for _, g := range groups {
					renderColumns(g.Label, g.Columns)
				}
				return nil
			})
		},
	})
	return fld
}

func taskCmd() *cobra.Command {
	tsk := &cobra.Command{Use: "task", Short: "Manage tasks"}
	tsk.AddCommand(taskAddCmd())
	tsk.AddCommand(taskListCmd())
	tsk.AddCommand(taskShowCmd())
	tsk.AddCommand(taskUpdateCmd())
	tsk.AddCommand(taskMoveCmd())
	tsk.AddCommand(taskReorderCmd())
	tsk.AddCommand(taskDeleteCmd())
	return tsk
}

func taskAddCmd() *cobra.Command {
	var opts engine.TaskCreateOptions
	var estimation float64
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Summary == "" {
				return fmt.Errorf("--summary required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				board, err := app.ResolveBoard(ctx, e, viper.GetString("board"), viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				opts.BoardID = board.ID
				opts.ActorID = viper.GetString("actor-id")
				if cmd.Flags().Changed("estimation") {
					opts.Estimation = &estimation
				}
				t, err := e.CreateTask(ctx, opts)
				if err != nil {
					return err
				}
				return printJSON(t)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Summary, "summary", "", "task summary")
	cmd.Flags().StringVar(&opts.Key, "key", "", "explicit task key")
	cmd.Flags().StringVar(&opts.ParentID, "parent", "", "parent task id")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	cmd.Flags().StringVar(&opts.Status, "status", "", "TODO, IN_PROGRESS or DONE")
	cmd.Flags().StringVar(&opts.Priority, "priority", "", "LOW, MEDIUM, HIGH or CRITICAL")
	cmd.Flags().StringSliceVar(&opts.Labels, "label", nil, "labels")
	cmd.Flags().StringVar(&opts.DueDate, "due", "", "due date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.ScheduleDate, "schedule", "", "schedule date (YYYY-MM-DD)")
	cmd.Flags().Float64Var(&estimation, "estimation", 0, "estimation in hours")
	return cmd
}

func taskListCmd() *cobra.Command {
	var parentID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks on the active board",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				board, err := app.ResolveBoard(ctx, e, viper.GetString("board"), viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				tasks, err := e.Repo.ListTasks(ctx, repo.TaskFilters{BoardID: board.ID, ParentID: parentID})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(tasks)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Key", "Summary", "Status", "Priority", "Due", "Subtasks"})
				for _, t := range tasks {
					due := ""
					if t.DueDate != nil {
						due = *t.DueDate
					}
					tw.AppendRow(table.Row{t.Key, t.Summary, t.Status, t.Priority, due, len(t.Subtasks)})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&parentID, "parent", "", "list subtasks of a parent task")
	return cmd
}

func taskShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id-or-key>",
		Short: "Show a task tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := resolveTask(ctx, e, args[0])
				if err != nil {
					return err
				}
				tree, err := e.Repo.GetTaskTree(ctx, t.ID)
				if err != nil {
					return err
				}
				return printJSON(tree)
			})
		},
	}
	return cmd
}

func taskUpdateCmd() *cobra.Command {
	var summary, description, status, priority, due, schedule string
	var labels []string
	var estimation float64
	cmd := &cobra.Command{
		Use:   "update <id-or-key>",
		Short: "Update a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := resolveTask(ctx, e, args[0])
				if err != nil {
					return err
				}
				var patch domain.TaskPatch
				if cmd.Flags().Changed("summary") {
					patch.Summary = &summary
				}
				if cmd.Flags().Changed("description") {
					patch.Description = &description
				}
				if cmd.Flags().Changed("status") {
					s := domain.ParseStatus(status)
					patch.Status = &s
				}
				if cmd.Flags().Changed("priority") {
					p := domain.ParsePriority(priority)
					patch.Priority = &p
				}
				if cmd.Flags().Changed("label") {
					patch.Labels = labels
				}
				if cmd.Flags().Changed("due") {
					patch.DueDate = &due
				}
				if cmd.Flags().Changed("schedule") {
					patch.ScheduleDate = &schedule
				}
				if cmd.Flags().Changed("estimation") {
					patch.Estimation = &estimation
				}
				updated, err := e.UpdateTask(ctx, t.ID, patch, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSON(updated)
			})
		},
	}
	cmd.Flags().StringVar(&summary, "summary", "", "task summary")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().StringVar(&status, "status", "", "TODO, IN_PROGRESS or DONE")
	cmd.Flags().StringVar(&priority, "priority", "", "LOW, MEDIUM, HIGH or CRITICAL")
	cmd.Flags().StringSliceVar(&labels, "label", nil, "replace label set")
	cmd.Flags().StringVar(&due, "due", "", "due date; empty clears")
	cmd.Flags().StringVar(&schedule, "schedule", "", "schedule date; empty clears")
	cmd.Flags().Float64Var(&estimation, "estimation", 0, "estimation in hours")
	return cmd
}

func taskMoveCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "move <id-or-key>",
		Short: "Move a task to another column",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if status == "" {
				return fmt.Errorf("--status required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := resolveTask(ctx, e, args[0])
				if err != nil {
					return err
				}
				moved, err := e.MoveTask(ctx, t.ID, status, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSON(moved)
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "TODO, IN_PROGRESS or DONE")
	return cmd
}

func taskReorderCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "reorder <id>...",
		Short: "Reorder a column of the active board",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if status == "" {
				return fmt.Errorf("--status required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				board, err := app.ResolveBoard(ctx, e, viper.GetString("board"), viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return e.ReorderTasks(ctx, board.ID, status, args, viper.GetString("actor-id"))
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "column to reorder")
	return cmd
}

func taskDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id-or-key>",
		Short: "Delete a task and its subtasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := resolveTask(ctx, e, args[0])
				if err != nil {
					return err
				}
				return e.DeleteTask(ctx, t.ID, viper.GetString("actor-id"))
			})
		},
	}
	return cmd
}

func labelCmd() *cobra.Command {
	lbl := &cobra.Command{Use: "label", Short: "Manage labels"}
	lbl.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List labels",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListLabels(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	})
	lbl.AddCommand(&cobra.Command{
		Use:   "add <name>",
		Short: "Create a label if missing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				l, err := e.EnsureLabel(ctx, args[0], viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSON(l)
			})
		},
	})
	return lbl
}

func scheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule [day]",
		Short: "Show scheduled tasks across boards, grouped by board",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			day := columns.Day(time.Now())
			if len(args) == 1 {
				day = args[0]
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				tasks, err := e.Repo.ListTasks(ctx, repo.TaskFilters{ScheduleOn: day})
				if err != nil {
					return err
				}
				names, err := e.Repo.BoardNames(ctx)
				if err != nil {
					return err
				}
				groups := columns.BuildGroups(tasks, func(id string) string { return names[id] })
				if viper.GetBool("json") {
					return printJSON(groups)
				}
				fmt.Println("Schedule for", day)
				for _, g := range groups {
					renderColumns(g.Label, g.Columns)
				}
				return nil
			})
		},
	}
	return cmd
}

func logCmd() *cobra.Command {
	lg := &cobra.Command{Use: "log", Short: "Event log"}
	lg.AddCommand(logTailCmd())
	return lg
}

func logTailCmd() *cobra.Command {
	var n int
	var boardID, evtType, entityKind, entityID string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				events, err := r.LatestEvents(ctx, n, boardID, evtType, entityKind, entityID)
				if err != nil {
					return err
				}
				return printJSONOrTable(events)
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&boardID, "board-id", "", "board filter")
	cmd.Flags().StringVar(&evtType, "type", "", "event type filter")
	cmd.Flags().StringVar(&entityKind, "entity-kind", "", "entity kind")
	cmd.Flags().StringVar(&entityID, "entity-id", "", "entity id")
	return cmd
}

func apikeyCmd() *cobra.Command {
	ak := &cobra.Command{Use: "apikey", Short: "Manage API keys"}
	var name string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an API key for the current actor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				key, plaintext, err := e.CreateAPIKey(ctx, viper.GetString("actor-id"), name)
				if err != nil {
					return err
				}
				return printJSON(map[string]any{
					"id":       key.ID,
					"actor_id": key.ActorID,
					"name":     key.Name,
					"key":      plaintext,
				})
			})
		},
	}
	create.Flags().StringVar(&name, "name", "", "key name")
	ak.AddCommand(create)
	ak.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListAPIKeys(ctx, "")
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	})
	ak.AddCommand(&cobra.Command{
		Use:   "delete <key-id>",
		Short: "Delete an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				return r.DeleteAPIKey(ctx, args[0])
			})
		},
	})
	return ak
}

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			if _, err := db.EnsureWorkspace(workspace); err != nil {
				return err
			}
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			cfg, err := config.Load(workspace)
			if err != nil {
				return err
			}
			if secret := os.Getenv("TASKBOARD_JWT_SECRET"); secret != "" {
				cfg.Server.JWTSecret = secret
			}
			e := engine.New(conn, cfg)
			handler, err := server.New(server.Config{
				Engine:   e,
				BasePath: cfg.Server.BasePath,
				Auth: server.AuthConfig{
					JWTSecret:              cfg.Server.JWTSecret,
					AllowLegacyActorHeader: cfg.Server.AllowLegacyActorHeader,
				},
			})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Taskboard API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, cfg.Server.BasePath, cfg.Server.BasePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	return cmd
}

// --- helpers ---

// resolveTask accepts either a task id or a human-readable key.
func resolveTask(ctx context.Context, e engine.Engine, ref string) (domain.Task, error) {
	if t, err := e.Repo.GetTask(ctx, ref); err == nil {
		return t, nil
	} else if !errors.Is(err, repo.ErrNotFound) {
		return domain.Task{}, err
	}
	t, _, err := e.Repo.GetTaskByKey(ctx, ref)
	return t, err
}

func renderColumns(label string, cols columns.Columns) {
	fmt.Println("==", label, "==")
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Column", "Key", "Summary", "Priority"})
	for _, status := range domain.Statuses() {
		for _, t := range cols[status] {
			tw.AppendRow(table.Row{status, t.Key, t.Summary, t.Priority})
		}
	}
	tw.Render()
}

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	cfg, err := config.Load(workspace)
	if err != nil {
		return err
	}
	e := engine.New(conn, cfg)
	return fn(ctx, e)
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	return fn(ctx, repo.Repo{DB: conn})
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
