package policy

// subjectTerms are names, aliases and possessive references to the protected
// individual. Matching any of them marks the text as being about the subject.
var subjectTerms = []string{
	"hamza", "khan", "creator", "developer", "owner", "master",
	"tera", "uska", "unka", "hamza khan",
}

// negativeTerms are profanity and disparagement keywords in the interface's
// working languages.
var negativeTerms = []string{
	"bad", "worst", "idiot", "stupid", "fraud", "scam", "loser", "fake",
	"hate", "terrible", "useless",
	"bakwas", "fazool", "bura", "ghatiya", "pagal", "chutiya", "sala",
	"kutte", "bekar", "kamine", "harami", "lodu", "maderchod", "behenchod",
	"randi", "pilla", "low quality",
}
