package runtime

import (
	"fmt"

	"github.com/aretw0/coach/pkg/domain"
)

// HintLevel is the strength of an elevated hint.
type HintLevel string

const (
	HintNudge    HintLevel = "nudge"
	HintGuided   HintLevel = "guided"
	HintDetailed HintLevel = "detailed"
)

// HintLevelFor maps a skill estimate to a hint strength. Unknown skill gets
// the most generous hint.
func HintLevelFor(level domain.SkillLevel) HintLevel {
	switch level {
	case domain.SkillAdvanced:
		return HintNudge
	case domain.SkillIntermediate:
		return HintGuided
	default:
		return HintDetailed
	}
}

var fallbackReplies = map[domain.Stage]string{
	domain.StageProblemClarification: "Let's make sure we understand the problem. What are the inputs and expected outputs?",
	domain.StageThoughtArticulation:  "Let's think about this step by step. What would be the simplest approach to solve this, even if not optimal?",
	domain.StageComplexityAnalysis:   "Can you analyze the time and space complexity of your approach?",
	domain.StagePseudocodeDesign:     "Now let's write out the pseudocode or main logic structure.",
	domain.StageEdgeCaseCheck:        "What edge cases should we consider? Think about empty inputs, extreme values, etc.",
	domain.StageFollowUp:             "Great work! Now let's think about: could we optimize this further?",
	domain.StagePatternSummary:       "Let's summarize: what pattern did we use here, and when would you use it again?",
}

// FallbackReply returns the static stage prompt used when generation is unavailable.
func FallbackReply(stage domain.Stage) string {
	if r, ok := fallbackReplies[stage]; ok {
		return r
	}
	return "Let's continue with the next step."
}

// OpeningPrompt is the first assistant message of a new session.
func OpeningPrompt(s *domain.Session) string {
	return fmt.Sprintf("Let's work on this problem together:\n\n%s\n\n%s", s.Problem, FallbackReply(domain.StageProblemClarification))
}

var invalidReplies = map[domain.Tag]string{
	domain.TagEmptyInput:    "I didn't catch that. Could you share your thoughts?",
	domain.TagTooShortInput: "That's a bit brief! Could you elaborate a bit more?",
	domain.TagOffTopicInput: "Hmm, that seems unrelated. Let me rephrase the question.",
	domain.TagRepeatedInput: "I notice you've said something similar before. Want to try a different angle?",
}

func invalidReply(tag domain.Tag, stage domain.Stage) string {
	r := invalidReplies[tag]
	if tag == domain.TagOffTopicInput {
		r += " " + FallbackReply(stage)
	}
	return r
}

const helpIntro = "I notice you might be stuck. No worries! Let me help you with a more detailed hint."

func helpReply(stage domain.Stage) string {
	return helpIntro + "\n\n" + staticHint(stage, HintDetailed)
}

var hintLadder = map[domain.Stage]map[HintLevel]string{
	domain.StageProblemClarification: {
		HintNudge:    "Restate the problem in one sentence.",
		HintGuided:   "Name the input, the output, and one example that connects them.",
		HintDetailed: "Write down what you are given, what you must return, and walk one small example by hand. Which data structure keeps track of what you've seen?",
	},
	domain.StageThoughtArticulation: {
		HintNudge:    "What is the brute-force approach?",
		HintGuided:   "Describe the brute-force approach first, then ask which repeated work you could avoid.",
		HintDetailed: "Start with checking every possibility. Then look for work you repeat: could a lookup structure answer that question in O(1)?",
	},
	domain.StageComplexityAnalysis: {
		HintNudge:    "How many times does each element get touched?",
		HintGuided:   "Count the loops and what each iteration costs, then count the extra memory you keep.",
		HintDetailed: "For time, multiply the number of iterations by the cost of each step. For space, add up every structure that grows with the input. Express both in big-O.",
	},
	domain.StagePseudocodeDesign: {
		HintNudge:    "What is the main loop?",
		HintGuided:   "Write the loop header, the check inside it, and what you return.",
		HintDetailed: "Outline it as: initialize your structures, loop over the input, check the condition, update state, return the result. Fill in one line at a time.",
	},
	domain.StageEdgeCaseCheck: {
		HintNudge:    "What is the smallest input?",
		HintGuided:   "Try an empty input, a single element, and duplicates.",
		HintDetailed: "Run your pseudocode by hand on: an empty input, one element, all duplicates, negative numbers, and the largest allowed size. Where could it break?",
	},
	domain.StageFollowUp: {
		HintNudge:    "Can you trade space for time?",
		HintGuided:   "Ask whether sorting or a different structure changes the cost.",
		HintDetailed: "Consider what changes if memory were limited, if the input were sorted, or if the data arrived as a stream. Which part of your solution would you change?",
	},
	domain.StagePatternSummary: {
		HintNudge:    "Name the pattern.",
		HintGuided:   "Name the pattern and one clue in the problem that pointed to it.",
		HintDetailed: "Name the pattern, the clue in the statement that suggested it, and another problem where the same idea applies.",
	},
}

func staticHint(stage domain.Stage, level HintLevel) string {
	if byLevel, ok := hintLadder[stage]; ok {
		if h, ok := byLevel[level]; ok {
			return h
		}
	}
	return FallbackReply(stage)
}

var encouragements = []string{
	"I can tell this is challenging, and that's completely normal! Even experienced engineers struggle with these problems at first.",
	"Let me help you break this down into smaller steps. We'll tackle it together.",
	"How about we approach this differently? Sometimes a fresh angle makes all the difference.",
}

// encouragement rotates through the list so that replies vary between turns
// while staying deterministic.
func encouragement(s *domain.Session) string {
	return encouragements[len(s.Conversation)/2%len(encouragements)]
}

func skipRefusal(stage domain.Stage) string {
	return fmt.Sprintf("I understand you want to move forward, but this stage is crucial for interview success. "+
		"In real interviews, skipping **%s** would be a red flag. "+
		"How about we spend just 2-3 minutes on this? It'll make a big difference.", stage.Title())
}

var skipReminders = map[domain.Stage]string{
	domain.StageComplexityAnalysis: "discussing complexity shows analytical maturity",
	domain.StagePatternSummary:     "summarizing patterns helps you in future problems",
}

func skipAccepted(from, to domain.Stage) string {
	reminder, ok := skipReminders[from]
	if !ok {
		reminder = "this step is valuable"
	}
	return fmt.Sprintf("Okay, we can move on for now. But remember, in a real interview, %s. "+
		"Let's continue to the next part.\n\n%s", reminder, FallbackReply(to))
}

const skipAtEnd = "We're already at the last step. Once you've summarized the pattern, this session is complete."

var socraticQuestions = map[domain.Stage]string{
	domain.StageProblemClarification: "What would the output be for the smallest example you can think of?",
	domain.StageThoughtArticulation:  "If you had to solve it by hand for five elements, what would you do first?",
	domain.StageComplexityAnalysis:   "How many times does your approach look at each element?",
	domain.StagePseudocodeDesign:     "What should happen inside your main loop on each iteration?",
	domain.StageEdgeCaseCheck:        "What does your pseudocode do when the input is empty?",
	domain.StageFollowUp:             "Which part of your solution costs the most, and could a different structure help?",
	domain.StagePatternSummary:       "What clue in the problem statement pointed you to this approach?",
}

func overRelianceReply(stage domain.Stage) string {
	q, ok := socraticQuestions[stage]
	if !ok {
		q = FallbackReply(stage)
	}
	return "I know it's tempting, but handing you the answer won't help you in the interview. Let's get there together. " + q
}

var reframes = map[domain.Stage]string{
	domain.StageProblemClarification: "Let me ask it differently: if I gave you a small input, what exactly should come back?",
	domain.StageThoughtArticulation:  "Let me ask it differently: forget efficiency for a moment. How would you solve it with pen and paper?",
	domain.StageComplexityAnalysis:   "Let me ask it differently: if the input doubled in size, how much longer would your approach take?",
	domain.StagePseudocodeDesign:     "Let me ask it differently: list the steps of your approach as short numbered lines.",
	domain.StageEdgeCaseCheck:        "Let me ask it differently: which input would you use to try to break your solution?",
	domain.StageFollowUp:             "Let me ask it differently: what would you change if memory were very limited?",
	domain.StagePatternSummary:       "Let me ask it differently: how would you describe this technique to a friend in one sentence?",
}

func stagnationReply(stage domain.Stage) string {
	r, ok := reframes[stage]
	if !ok {
		r = FallbackReply(stage)
	}
	return r + "\n\nHint: " + staticHint(stage, HintDetailed)
}

var reprompts = map[string]string{
	domain.FieldUserApproach: "Before we continue, could you describe your approach in a sentence or two?",
	domain.FieldPseudocode:   "Before we check edge cases, please share your pseudocode or the main steps of your solution.",
}

func reprompt(field string) string {
	if r, ok := reprompts[field]; ok {
		return r
	}
	return fmt.Sprintf("Before we continue, could you tell me your %s?", field)
}

const (
	neutralReply       = "Thanks, let's keep going. Could you tell me a bit more about your thinking?"
	clarificationReply = "I'm not sure how to help with that just yet. Could you tell me more about what you're thinking?"
	resetReply         = "Sorry, I lost track of where we were. That's on my side, not yours. Let's restart from the problem statement."
)

func resetMessage() string {
	return resetReply + "\n\n" + FallbackReply(domain.StageProblemClarification)
}
