package embed_data

import _ "embed"

//go:embed prompts/system_intro.txt
var SystemIntroPrompt []byte

//go:embed prompts/system_guidance.txt
var SystemGuidancePrompt []byte
