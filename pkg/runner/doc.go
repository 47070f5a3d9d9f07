/*
Package runner drives a coaching session over a line-oriented channel.

The Runner resumes or starts a session, prints the opening prompt and then
alternates between reading one line from an IOHandler and submitting it as a
turn. Handlers decide how replies look: TextHandler writes plain text (optionally
rendered as markdown) and JSONHandler writes one JSON event per line for
programmatic hosts.

# Usage

	r := runner.New(eng,
		runner.WithProblem("Given an array of integers, return indices of two numbers that add up to a target."),
		runner.WithHandler(runner.NewTextHandler(os.Stdin, os.Stdout)),
	)
	if err := r.Run(ctx); err != nil {
		log.Fatal(err)
	}

SanitizeInput is shared by every transport that accepts learner text.
*/
package runner
