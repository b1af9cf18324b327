// Package driver runs policies against a MultiCart for a number of
// episodes and collects per-episode results.
//
// A [Runner] owns one environment and one policy and is not safe for
// concurrent use. [RunEnsemble] builds a fresh runner per seed and runs
// them in parallel:
//
//	results, err := driver.RunEnsemble(ctx, 8, 1, 4, build, driver.Config{
//		Episodes: 10,
//		MaxSteps: 200,
//	})
package driver
