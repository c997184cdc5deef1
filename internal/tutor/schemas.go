package tutor

import (
	"github.com/phrazzld/scry-tutor/internal/generation"
	"github.com/phrazzld/scry-tutor/internal/normalize"
)

var questionsSchema = &generation.Schema{
	Type:        generation.TypeArray,
	Description: "Practice test questions",
	Items: &generation.Schema{
		Type: generation.TypeObject,
		Properties: map[string]*generation.Schema{
			"question":    {Type: generation.TypeString},
			"options":     {Type: generation.TypeArray, Items: &generation.Schema{Type: generation.TypeString}},
			"answer":      {Type: generation.TypeString},
			"explanation": {Type: generation.TypeString},
			"chapter":     {Type: generation.TypeString},
			"marks":       {Type: generation.TypeInteger},
		},
		Required: []string{"question", "options", "answer"},
	},
}

var flashcardsSchema = &generation.Schema{
	Type:        generation.TypeArray,
	Description: "Flashcards",
	Items: &generation.Schema{
		Type: generation.TypeObject,
		Properties: map[string]*generation.Schema{
			"front": {Type: generation.TypeString},
			"back":  {Type: generation.TypeString},
			"hint":  {Type: generation.TypeString},
			"tags":  {Type: generation.TypeArray, Items: &generation.Schema{Type: generation.TypeString}},
		},
		Required: []string{"front", "back"},
	},
}

var (
	questionsValidator  = normalize.MustValidator(questionsSchema)
	flashcardsValidator = normalize.MustValidator(flashcardsSchema)
)
