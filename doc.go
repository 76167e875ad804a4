// Package treeconf provides hierarchical configuration trees with typed
// fields, named variant groups, and dotted-path overrides from command-line
// arguments, environment variables, and structured override files.
//
// A caller declares a tree of fields (each with an optional default,
// converter, validator, and reference function), then resolves it in a
// single pass:
//
//	cfg := treeconf.New().
//		Define("output_dir", "output").
//		Define("model", treeconf.NewGroup("rnn").
//			Variant("rnn", treeconf.New().
//				Define("n_layers", 4).
//				Define("bidirectional", true)).
//			Variant("transformer", treeconf.New().
//				Define("n_layers", 32).
//				Define("num_attention_heads", 8)))
//
//	if err := cfg.Apply([]string{"--model", "transformer", "--model.n_layers", "16"}); err != nil {
//		log.Fatal(err)
//	}
//	n, _ := cfg.Int64("model.n_layers")
//
// Apply merges overrides onto the declared defaults, switches variant
// groups, evaluates reference functions, checks required fields, and runs
// validators, in that fixed order. Override sources (CLI tokens,
// environment variables, structured YAML/TOML/JSON files, defaults) are
// layered with configurable precedence; by default CLI wins over
// environment, environment over file, file over defaults.
//
// Override token syntax:
//
//	--key.subkey value      set a nested field
//	--key.subkey=value      same, embedded separator
//	--flag                  boolean true
//	--no-flag               boolean false
//	--key name              switch a variant group to "name"
//	--overrides file.yaml   merge a structured override file
//	--help                  print the full option tree and exit
//
// The resolved tree flattens to a plain nested map (ToMap), exports to YAML
// or TOML, and decodes into caller structs via Scan.
//
// Trees are not safe for concurrent mutation: exactly one Apply cycle may
// run against a given tree at a time. This is a documented precondition,
// not enforced at runtime.
package treeconf
