package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/orneryd/nornicgraph/pkg/logging"
	"github.com/orneryd/nornicgraph/pkg/predicate"
	"github.com/orneryd/nornicgraph/pkg/query"
	"github.com/orneryd/nornicgraph/pkg/record"
	"github.com/orneryd/nornicgraph/pkg/schema"
	"github.com/orneryd/nornicgraph/pkg/storage"
	"github.com/orneryd/nornicgraph/pkg/value"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize a database with the demo social graph",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := a.openEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			if err := seedDemo(engine); err != nil {
				return err
			}
			logging.Component(a.log, "cli").WithField("data_dir", a.cfg.Storage.DataDir).Info("demo graph created")
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized demo graph in %s\n", a.cfg.Storage.DataDir)
			return nil
		},
	}
}

// seedDemo creates a small social graph:
//
//	ann -Knows-> bob -Knows-> cid -Knows-> dan
//	ann -Blocks-> eve (an Employee)
func seedDemo(engine *storage.BadgerEngine) error {
	existing, err := engine.Classes(schema.Undefined)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return fmt.Errorf("database already initialized (%d classes)", len(existing))
	}

	type step func() error
	class := func(name string, kind schema.ClassType) step {
		return func() error { _, err := engine.CreateClass(name, kind); return err }
	}
	sub := func(name, super string) step {
		return func() error { _, err := engine.CreateSubclass(name, super); return err }
	}
	prop := func(class, name string, typ value.PropertyType) step {
		return func() error { _, err := engine.AddProperty(class, name, typ); return err }
	}
	for _, s := range []step{
		class("Person", schema.Vertex),
		prop("Person", "name", value.TypeText),
		prop("Person", "age", value.TypeInteger),
		sub("Employee", "Person"),
		prop("Employee", "salary", value.TypeBigInt),
		class("Knows", schema.Edge),
		prop("Knows", "since", value.TypeSmallInt),
		class("Blocks", schema.Edge),
	} {
		if err := s(); err != nil {
			return fmt.Errorf("creating demo schema: %w", err)
		}
	}

	people := []struct {
		class string
		name  string
		age   int32
	}{
		{"Person", "ann", 31},
		{"Person", "bob", 25},
		{"Person", "cid", 40},
		{"Person", "dan", 19},
		{"Employee", "eve", 35},
	}
	ids := make(map[string]record.ID, len(people))
	for _, p := range people {
		props := map[string]value.Value{"name": value.Text(p.name), "age": value.Int(p.age)}
		if p.class == "Employee" {
			props["salary"] = value.BigInt(90000)
		}
		rid, err := engine.AddVertex(p.class, props)
		if err != nil {
			return fmt.Errorf("creating demo vertex %s: %w", p.name, err)
		}
		ids[p.name] = rid
	}

	edges := []struct {
		class    string
		src, dst string
		since    int16
	}{
		{"Knows", "ann", "bob", 2010},
		{"Knows", "bob", "cid", 2012},
		{"Knows", "cid", "dan", 2020},
		{"Blocks", "ann", "eve", 0},
	}
	for _, e := range edges {
		var props map[string]value.Value
		if e.class == "Knows" {
			props = map[string]value.Value{"since": value.SmallInt(e.since)}
		}
		if _, err := engine.AddEdge(e.class, ids[e.src], ids[e.dst], props); err != nil {
			return fmt.Errorf("creating demo edge %s->%s: %w", e.src, e.dst, err)
		}
	}
	return nil
}

func newClassesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classes",
		Short: "List classes and their properties",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := kindFlag(cmd)
			if err != nil {
				return err
			}
			engine, err := a.openEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			classes, err := engine.Classes(kind)
			if err != nil {
				return err
			}
			return printClasses(cmd.OutOrStdout(), classes)
		},
	}
	cmd.Flags().String("kind", "any", "Class kind: vertex, edge, any")
	return cmd
}

// whereFlags registers the predicate flags shared by find and edges.
func whereFlags(cmd *cobra.Command) {
	cmd.Flags().StringArray("where", nil, `Filter clause "[not] <property> <comparator> [operand]" (repeatable)`)
	cmd.Flags().Bool("ignore-case", false, "Compare text case-insensitively")
	cmd.Flags().Bool("any", false, "Join where clauses with OR instead of AND")
}

func wherePredicate(cmd *cobra.Command, flag string, classes []schema.ClassInfo) (predicate.Predicate, error) {
	clauses, _ := cmd.Flags().GetStringArray(flag)
	ignoreCase, _ := cmd.Flags().GetBool("ignore-case")
	anyOf, _ := cmd.Flags().GetBool("any")
	return buildPredicate(clauses, typesOf(classes), ignoreCase, anyOf)
}

func newFindCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "find <class>",
		Short: "Scan a class and its subclasses for matching records",
		Example: `  nornicgraph find Person --where "age >= 30"
  nornicgraph find Person --where "name like a%" --where "name = eve" --any`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := kindFlag(cmd)
			if err != nil {
				return err
			}
			return a.withExecutor(func(exec *query.Executor, snap *storage.Snapshot) error {
				classes, err := snap.ClassesByName([]string{args[0]}, kind)
				if err != nil {
					return err
				}
				pred, err := wherePredicate(cmd, "where", classes)
				if err != nil {
					return err
				}
				rs, err := exec.Find(args[0], kind, pred)
				if err != nil {
					return err
				}
				return printResults(cmd.OutOrStdout(), rs, false)
			})
		},
	}
	cmd.Flags().String("kind", "any", "Class kind: vertex, edge, any")
	whereFlags(cmd)
	return cmd
}

func newEdgesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "edges <rid>",
		Short:   "List the edges incident to a vertex",
		Example: `  nornicgraph edges "#1:0" --direction out --class Knows --where "since < 2015"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rid, err := record.ParseID(args[0])
			if err != nil {
				return err
			}
			dir, err := directionFlag(cmd)
			if err != nil {
				return err
			}
			filter := classFilterFlag(cmd)
			return a.withExecutor(func(exec *query.Executor, snap *storage.Snapshot) error {
				classes, err := edgeClassesFor(snap, filter)
				if err != nil {
					return err
				}
				pred, err := wherePredicate(cmd, "where", classes)
				if err != nil {
					return err
				}
				rs, err := exec.Edges(rid, dir, pred, filter)
				if err != nil {
					return err
				}
				return printResults(cmd.OutOrStdout(), rs, false)
			})
		},
	}
	cmd.Flags().String("direction", "all", "Edge direction: out, in, all")
	cmd.Flags().StringSlice("class", nil, "Edge classes to follow (default: all)")
	whereFlags(cmd)
	return cmd
}

func newWalkCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "walk <rid>",
		Short: "Walk outwards from a vertex breadth or depth first",
		Example: `  nornicgraph walk "#1:0" --min 1 --max 2 --class Knows
  nornicgraph walk "#1:3" --direction in --mode dfs`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rid, err := record.ParseID(args[0])
			if err != nil {
				return err
			}
			dir, err := directionFlag(cmd)
			if err != nil {
				return err
			}
			mode, _ := cmd.Flags().GetString("mode")
			minDepth, _ := cmd.Flags().GetUint32("min")
			maxDepth := a.cfg.Query.MaxWalkDepth
			if cmd.Flags().Changed("max") {
				maxDepth, _ = cmd.Flags().GetUint32("max")
			}
			filter := classFilterFlag(cmd)

			return a.withExecutor(func(exec *query.Executor, snap *storage.Snapshot) error {
				path, err := pathFilter(cmd, snap, filter)
				if err != nil {
					return err
				}
				var rs query.ResultSet
				switch mode {
				case "bfs":
					rs, err = exec.BreadthFirst(rid, minDepth, maxDepth, dir, filter, path)
				case "dfs":
					rs, err = exec.DepthFirst(rid, minDepth, maxDepth, dir, filter, path)
				default:
					return fmt.Errorf("unknown walk mode %q (want bfs or dfs)", mode)
				}
				if err != nil {
					return err
				}
				return printResults(cmd.OutOrStdout(), rs, true)
			})
		},
	}
	cmd.Flags().String("mode", "bfs", "Walk order: bfs, dfs")
	cmd.Flags().Uint32("min", 0, "Minimum depth to report")
	cmd.Flags().Uint32("max", 0, "Maximum depth to expand (default: query.max_walk_depth)")
	cmd.Flags().String("direction", "out", "Edge direction: out, in, all")
	cmd.Flags().StringSlice("class", nil, "Edge classes to follow (default: all)")
	pathFlags(cmd)
	return cmd
}

func newPathCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "path <src> <dst>",
		Short: "Find a shortest outgoing path between two vertices",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := record.ParseID(args[0])
			if err != nil {
				return err
			}
			dst, err := record.ParseID(args[1])
			if err != nil {
				return err
			}
			filter := classFilterFlag(cmd)
			return a.withExecutor(func(exec *query.Executor, snap *storage.Snapshot) error {
				path, err := pathFilter(cmd, snap, filter)
				if err != nil {
					return err
				}
				rs, err := exec.ShortestPath(src, dst, filter, path)
				if err != nil {
					return err
				}
				return printResults(cmd.OutOrStdout(), rs, true)
			})
		},
	}
	cmd.Flags().StringSlice("class", nil, "Edge classes to follow (default: all)")
	pathFlags(cmd)
	return cmd
}

func pathFlags(cmd *cobra.Command) {
	cmd.Flags().StringArray("vertex-where", nil, "Clause a visited vertex must satisfy (repeatable)")
	cmd.Flags().StringArray("edge-where", nil, "Clause a followed edge must satisfy (repeatable)")
	cmd.Flags().Bool("ignore-case", false, "Compare text case-insensitively")
	cmd.Flags().Bool("any", false, "Join clauses with OR instead of AND")
}

// pathFilter turns --vertex-where and --edge-where into a PathFilter. A
// record whose clause fails to evaluate is rejected.
func pathFilter(cmd *cobra.Command, snap *storage.Snapshot, filter predicate.ClassFilter) (predicate.PathFilter, error) {
	path := predicate.NewPathFilter()

	vertexClasses, err := snap.Classes(schema.Vertex)
	if err != nil {
		return path, err
	}
	vertexPred, err := wherePredicate(cmd, "vertex-where", vertexClasses)
	if err != nil {
		return path, err
	}
	if vertexPred != nil {
		path = path.WithVertex(accept(vertexPred, vertexClasses))
	}

	edgeClasses, err := edgeClassesFor(snap, filter)
	if err != nil {
		return path, err
	}
	edgePred, err := wherePredicate(cmd, "edge-where", edgeClasses)
	if err != nil {
		return path, err
	}
	if edgePred != nil {
		path = path.WithEdge(accept(edgePred, edgeClasses))
	}
	return path, nil
}

func accept(pred predicate.Predicate, classes []schema.ClassInfo) predicate.EvaluatorFunc {
	types := predicate.PropertyTypes(typesOf(classes))
	return func(r *record.Record) bool {
		ok, err := pred.Execute(r, types)
		return err == nil && ok
	}
}

func edgeClassesFor(snap *storage.Snapshot, filter predicate.ClassFilter) ([]schema.ClassInfo, error) {
	if filter.IsEmpty() {
		return snap.Classes(schema.Edge)
	}
	return snap.ClassesByName(filter.Names(), schema.Edge)
}

// withExecutor opens the engine and a snapshot for the duration of fn.
func (a *app) withExecutor(fn func(exec *query.Executor, snap *storage.Snapshot) error) error {
	engine, err := a.openEngine()
	if err != nil {
		return err
	}
	defer engine.Close()
	return a.withSnapshot(engine, fn)
}

func kindFlag(cmd *cobra.Command) (schema.ClassType, error) {
	s, _ := cmd.Flags().GetString("kind")
	return schema.ParseClassType(s)
}

func directionFlag(cmd *cobra.Command) (query.Direction, error) {
	s, _ := cmd.Flags().GetString("direction")
	return query.ParseDirection(s)
}

func classFilterFlag(cmd *cobra.Command) predicate.ClassFilter {
	names, _ := cmd.Flags().GetStringSlice("class")
	return predicate.NewClassFilter(names...)
}
