/*
Package coach is a session state machine for guided technical-interview practice.

A session walks the learner through seven stages, from Problem Clarification to
Pattern Summary. Every user turn is classified first: empty, repeated or
off-topic input, skip requests, frustration and over-reliance are answered in
place by the escalation engine. Normal turns are routed to exactly one responder
for the current stage, whose proposed changes pass through a stage gate and a
single update protocol before they reach the session.

The engine guarantees a coherent reply on every path. Generation backend
failures are retried with exponential backoff and then replaced by a static
stage prompt; inconsistent state is reconstructed, re-prompted or reset.

# Usage

	gen, err := openai.New(apiKey)
	if err != nil {
		log.Fatal(err)
	}
	eng := coach.New(
		coach.WithGenerator(gen),
		coach.WithStore(file.New(".coach/sessions")),
	)

	s, err := eng.Start(ctx, "Given an array of integers, return the indices of two numbers that add up to a target.")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(coach.OpeningPrompt(s))

	out, err := eng.Turn(ctx, s.ID, "We need two positions whose values sum to the target")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(out.Reply)

Sessions that live only in memory can be driven directly with
Engine.ProcessUserInput.
*/
package coach
