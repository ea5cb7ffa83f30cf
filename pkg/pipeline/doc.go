// Package pipeline schedules validator rules and collects their findings.
//
// A run executes a set of [Rule] values against one immutable graph. Rules
// declare the slots they require and produce; [NewPlan] orders them
// topologically and the scheduler starts each rule as soon as its
// producers have finished, so independent rules run concurrently. Inside a
// rule, [ForEach] fans per-product or per-plugin work out to a bounded
// worker group.
//
// # Slots
//
// A [Slot] is a typed, publish-once channel between rules:
//
//	var ProductModules = pipeline.NewSlot[map[string][]string]("product-modules")
//
//	// producer
//	pipeline.Publish(c, ProductModules, closure)
//
//	// consumer (declares ProductModules.ID() in Requires)
//	closure, err := pipeline.Input(c, ProductModules)
//
// # Failures
//
// Rules never abort a run. An error or panic inside a rule becomes a
// [RuleFailure] in the [Report]; rules whose required slots were not
// published are skipped and reported the same way. Violations reported
// before a failure are kept.
//
// # Usage
//
// Create a Runner and check a graph:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	report, err := runner.Check(ctx, pipeline.Env{Graph: g}, validate.DefaultRules(), pipeline.Options{
//	    AutoAddedPolicy: pipeline.AutoAddedWarn,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if report.HasErrors() {
//	    os.Exit(1)
//	}
//
// Reports of side-effect free runs are cached under the graph fingerprint
// and the options that affect the result.
package pipeline
