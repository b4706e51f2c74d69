package templates

import (
	"github.com/sipeed/mimiclaw/pkg/routing"
)

// register buckets fragment pools by formality.
type register int

const (
	registerCasual register = iota
	registerNeutral
	registerFormal
)

// Openers by register. Greeting-category responses lead with these;
// other categories use them only at high verbosity.
var openers = map[register][]string{
	registerFormal: {
		"Good day.",
		"Thank you for reaching out.",
		"I appreciate the question.",
		"Certainly.",
	},
	registerNeutral: {
		"Hi!",
		"Sure thing.",
		"Happy to help.",
		"Alright.",
	},
	registerCasual: {
		"Hey!",
		"Yo!",
		"Oh nice, okay.",
		"Cool, let's do it.",
	},
}

// Core body fragments per response category and register.
var bodies = map[routing.Category]map[register][]string{
	routing.CategoryGreeting: {
		registerFormal: {
			"It is a pleasure to make your acquaintance.",
			"I trust this message finds you well.",
			"How may I be of assistance today?",
		},
		registerNeutral: {
			"Nice to see you. What can I do for you?",
			"Good to have you here. What's on your mind?",
			"How can I help today?",
		},
		registerCasual: {
			"What's up? Ready when you are.",
			"Good to see you! What are we working on?",
			"Hey hey. What do you need?",
		},
	},
	routing.CategoryFarewell: {
		registerFormal: {
			"Thank you for your time. Until next we speak.",
			"It has been a pleasure. Farewell.",
			"Wishing you a productive day ahead.",
		},
		registerNeutral: {
			"Take care! See you next time.",
			"Goodbye for now. Come back anytime.",
			"See you around.",
		},
		registerCasual: {
			"Later! Don't be a stranger.",
			"Catch you next time.",
			"Bye! Go build something cool.",
		},
	},
	routing.CategoryCode: {
		registerFormal: {
			"Allow me to outline a solution to the technical matter at hand.",
			"The following approach should address the issue methodically.",
			"Let us examine the problem from first principles.",
		},
		registerNeutral: {
			"Here's how I'd approach this.",
			"Let's work through the code step by step.",
			"The fix comes down to isolating the failing path.",
		},
		registerCasual: {
			"Okay, let's hack on this.",
			"Classic bug shape. Here's the move.",
			"Easy enough, let's just rip the broken part out.",
		},
	},
	routing.CategoryOpinion: {
		registerFormal: {
			"On balance, the evidence favors one position over the other.",
			"A considered view must weigh several factors.",
			"My assessment rests on the tradeoffs involved.",
		},
		registerNeutral: {
			"Here's my take on it.",
			"Both sides have merit, but one edges ahead.",
			"Weighing it up, I lean one way.",
		},
		registerCasual: {
			"Honestly? One of these is just better.",
			"Hot take incoming.",
			"My gut says there's a clear winner here.",
		},
	},
	routing.CategoryQuestion: {
		registerFormal: {
			"The matter admits a reasonably clear explanation.",
			"The answer follows from a few underlying principles.",
			"Permit me to address each aspect in turn.",
		},
		registerNeutral: {
			"Good question. The short answer comes down to a couple of things.",
			"The key point is simpler than it looks.",
			"Here's what's going on under the hood.",
		},
		registerCasual: {
			"Oh, that one's fun. So basically:",
			"Short version: it's simpler than it seems.",
			"Okay so here's the deal.",
		},
	},
	routing.CategoryTask: {
		registerFormal: {
			"I shall proceed with the requested work promptly.",
			"Consider it underway; an outline of the result follows.",
			"The task is quite manageable, as detailed below.",
		},
		registerNeutral: {
			"On it. Here's the plan.",
			"Sure, here's a first pass.",
			"Done thinking, here's the result.",
		},
		registerCasual: {
			"Say less. Here's the draft.",
			"Easy. Knocking it out now.",
			"On it, gimme a sec. Okay done:",
		},
	},
	routing.CategorySmalltalk: {
		registerFormal: {
			"A fine moment for light conversation.",
			"All is well on this end, thank you for asking.",
			"The day proceeds agreeably.",
		},
		registerNeutral: {
			"All good here. How about you?",
			"Can't complain. What's new with you?",
			"Doing fine, thanks for asking.",
		},
		registerCasual: {
			"Living the dream, haha. You?",
			"Same old, same old. What's up with you?",
			"Vibing. You?",
		},
	},
}

// Hedge phrases, inserted ahead of a body fragment when the persona
// hedges.
var hedges = []string{
	"I think",
	"Perhaps",
	"It seems that",
	"If I had to guess,",
	"Possibly",
	"As far as I can tell,",
}

// Elaborations pad responses at higher verbosity.
var elaborations = map[register][]string{
	registerFormal: {
		"There are, of course, additional considerations worth noting.",
		"A fuller treatment would also account for the surrounding context.",
		"I am happy to elaborate on any point above.",
	},
	registerNeutral: {
		"There's a bit more nuance if you want to dig deeper.",
		"A few details depend on your exact setup.",
		"Happy to expand on any part of this.",
	},
	registerCasual: {
		"There's more to it but that's the gist.",
		"Ask me if you want the long version.",
		"Plenty of rabbit holes here if you're curious.",
	},
}

// Warm closers and quips decorate high-warmth and high-humor personas.
var warmClosers = []string{
	"Hope that helps!",
	"You've got this.",
	"Always glad to dig into this together.",
	"Rooting for you on this one.",
}

var quips = []string{
	"(No semicolons were harmed in the making of this answer.)",
	"As the old joke goes: it works on my machine.",
	"Somewhere, a rubber duck nods approvingly.",
	"Insert obligatory 'have you tried turning it off and on' here.",
}

var formalClosers = []string{
	"Please do not hesitate to ask should anything remain unclear.",
	"I remain at your disposal for further questions.",
	"Kindly let me know if further detail would be useful.",
}

var neutralClosers = []string{
	"Let me know if you want to go deeper.",
	"Feel free to follow up.",
	"Shout if anything's unclear.",
}

// List scaffolding used when structure hints call for bullets.
var listScaffolds = map[routing.Category][]string{
	routing.CategoryTask: {
		"- Define what done looks like\n- Take the smallest useful step\n- Verify before moving on",
		"- Gather the inputs\n- Do the core transformation\n- Check the output",
	},
	routing.CategoryQuestion: {
		"- The main cause\n- The common edge case\n- What to check first",
		"- What it is\n- Why it happens\n- How to confirm",
	},
}

var defaultListScaffold = "- First consideration\n- Second consideration\n- What follows from both"

// Code scaffolding for code-category responses.
var codeScaffolds = []string{
	"```\n// minimal reproduction\nfunc main() {\n\t// isolate the failing call here\n}\n```",
	"```\nif err != nil {\n\treturn fmt.Errorf(\"context: %w\", err)\n}\n```",
	"```\n$ go test ./... -run TheFailingCase -v\n```",
}

// Neutral fallbacks per category: the deterministic last resort when
// generation cannot run.
var neutralFallbacks = map[routing.Category]string{
	routing.CategoryGreeting:  "Hello. How can I help?",
	routing.CategoryFarewell:  "Goodbye for now.",
	routing.CategoryCode:      "Let's look at the code. Could you share the failing part?",
	routing.CategoryOpinion:   "There are reasonable arguments on both sides.",
	routing.CategoryQuestion:  "Let me think about that and answer as directly as I can.",
	routing.CategoryTask:      "Understood. I'll get started on that.",
	routing.CategorySmalltalk: "All good here. What's on your mind?",
}
