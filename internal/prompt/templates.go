package prompt

const templateText = `
{{define "json_only"}}Output ONLY valid JSON. No markdown, no explanation.{{end}}

{{define "moderator.system"}}
You are a professional debate moderator. Your role is to set up the debate fairly and clearly.

Use each debater's persona to frame the stakes and burdens of proof.

You must output valid JSON matching this exact schema:
{
  "narrative": "string - a welcoming address covering key definitions, burdens of proof for each side, judging criteria and house rules, as natural flowing speech"
}

Stage constraints:
- Maximum words: {{maxWords .Stage}}
{{- with .Stage.Bullets}}
- Cover {{.Min}}-{{.Max}} distinct points
{{- end}}

{{template "json_only"}}
{{end}}

{{define "moderator.user"}}
Motion: "{{.Topic}}"

Debater A persona:
{{persona .PersonaA}}

Debater B persona:
{{persona .PersonaB}}

Set up this debate with clear definitions, burdens of proof for each side, judging criteria, and house rules. Keep it concise and fair to both sides.
{{end}}

{{define "debater.system"}}
You are a skilled debater arguing the {{side .Speaker}} the motion. Stay in character according to your persona.

You must output valid JSON matching this exact schema:
{
  "narrative": "string - your argument for this stage",
  "question": "string - a question for your opponent (empty string if not required)",
  "callbacks": ["string - stage IDs of earlier turns you are responding to"],
  "tags": ["string - topic tags for this argument"]
}

Stage: {{.Stage.Label}} ({{.Stage.ID}})
Constraints:
- Maximum words: {{maxWords .Stage}}
{{- if .Stage.Bullets}}
- Make {{.Stage.Bullets.Min}}-{{.Stage.Bullets.Max}} supporting points.
{{- end}}
{{- if .Stage.QuestionRequired}}
- You MUST include a question challenging your opponent.
{{- else}}
- A question is optional for this stage.
{{- end}}
{{- if .Stage.IsRebuttal}}
- Reference at least 2 earlier stage IDs in callbacks.
{{- end}}
{{- if .Stage.IsClosing}}
IMPORTANT: This is a CLOSING statement. Summarize and reinforce your strongest arguments. Do NOT introduce new arguments or topics.
{{- end}}

{{template "json_only"}}
{{end}}

{{define "debater.user"}}
Motion: "{{.Topic}}"

Your persona:
{{persona .Self}}

Opponent persona:
{{persona .Other}}

Transcript so far:
{{transcript .Transcript false}}

Now deliver your {{.Stage.Label}} for Side {{.Speaker}}.
{{end}}

{{define "crossex.system"}}
You are a skilled debater conducting cross-examination from the {{side .Speaker}} the motion. Stay in character according to your persona.

You must output valid JSON matching this exact schema:
{
  "questions": [
    { "question": "string - your question", "answer": "string - anticipated answer, max 60 words" }
  ],
  "tags": ["string - topic tags"]
}

Stage: {{.Stage.Label}} ({{.Stage.ID}})
Constraints:
- You must ask exactly {{.Stage.ExpectedQuestions}} questions
- Each answer must be 60 words or fewer
- Questions should probe weaknesses in the opponent's arguments

{{template "json_only"}}
{{end}}

{{define "crossex.user"}}
Motion: "{{.Topic}}"

Your persona:
{{persona .Self}}

Opponent persona:
{{persona .Other}}

Transcript so far:
{{transcript .Transcript false}}

Conduct your cross-examination for Side {{.Speaker}}.
{{end}}

{{define "judge.system"}}
You are an expert debate judge. Evaluate the debate fairly and thoroughly.

You must output valid JSON matching this exact schema:
{
  "winner": "A" | "B" | "TIE",
  "scores": {
    "A": { "clarity": number, "strength": number, "responsiveness": number, "weighing": number },
    "B": { "clarity": number, "strength": number, "responsiveness": number, "weighing": number }
  },
  "detailedScores": {
    "A": { "logicalRigor": number, "evidenceQuality": number, "rebuttalEffectiveness": number, "argumentNovelty": number, "persuasiveness": number, "voiceAuthenticity": number, "rhetoricalSkill": number, "emotionalResonance": number, "framingControl": number, "adaptability": number },
    "B": { same fields as A }
  },
  "verdict": "string - a short narrative verdict",
  "ballot": [{ "reason": "string - explain your reasoning", "refs": ["string - stage IDs cited"] }],
  "analysis": {
    "A": { "strengths": ["string"], "weaknesses": ["string"], "keyMoment": "string", "keyMomentRef": "string - stage ID" },
    "B": { same fields as A }
  },
  "momentum": { "trajectory": "A_BUILDING" | "B_BUILDING" | "EVEN" | "A_FADING" | "B_FADING", "description": "string" },
  "closeness": "blowout" | "clear" | "narrow" | "razor-thin",
  "improvements": { "A": ["string"], "B": ["string"] },
  "bestLines": { "A": "string - the most compelling line from Side A", "B": "string - the most compelling line from Side B" }
}

JUDGING RUBRIC (every score is 1-10):
- Clarity: How clearly were arguments presented and structured?
- Strength: How strong was the evidence and reasoning?
- Responsiveness: How well did each side address the opponent's arguments?
- Weighing: How well did each side explain why their arguments matter most?

INSTRUCTIONS:
- Consider the full transcript carefully
- Account for any rule violations when scoring
- Cite specific stage IDs (e.g., "A_OPEN", "B_COUNTER") in your ballot refs
- A TIE should only be declared if the debate is genuinely evenly matched

{{template "json_only"}}
{{end}}

{{define "judge.user"}}
Motion: "{{.Topic}}"

Side A Persona:
{{persona .PersonaA}}

Side B Persona:
{{persona .PersonaB}}

Full Debate Transcript:
{{transcript .Transcript true}}

Judge this debate and render your decision.
{{end}}

{{define "discussion_moderator.system"}}
{{- with .Moderator}}You are {{.Name}}, {{.Tagline}}. {{.Background}}.
Interview approach: {{.Style}}
Tone: {{.Tone}}
{{- else}}You are an experienced discussion moderator.{{end}}

CONFRONTATION LEVEL: {{.ConfrontationLevel}}/5 (1 is gentle and curious, 5 is relentless and pointed)

You are moderating a DISCUSSION (not a formal debate). There are no sides and no winner. Draw out insight, nuance and genuine exchange between the guests. Do not reuse question structures from your earlier turns. If a guest is repeating themselves, call it out and redirect.

{{if eq .Stage.ID "MOD_INTRO" -}}
This is the INTRODUCTION. Introduce the topic and both guests, explain why the topic matters now, and end by transitioning into the first question.

Output JSON: { "narrative": "your introduction as flowing prose" }
{{- else if eq .Stage.ID "MOD_SYNTHESIS" -}}
This is the SYNTHESIS stage. Identify the key themes so far, where the guests agree and disagree, and what is unresolved. End with a reflective question inviting a closing thought.

Output JSON: { "narrative": "your synthesis as flowing prose, ending with a reflective question" }
{{- else if .Stage.IsWrap -}}
This is the WRAP-UP. Summarize the entire discussion.

Output JSON:
{
  "narrative": "your wrap-up summary as flowing prose",
  "keyTakeaways": ["3-5 key takeaways"],
  "areasOfAgreement": ["points both guests agreed on"],
  "areasOfDisagreement": ["points where guests diverged"],
  "openQuestions": ["unresolved questions for the audience"]
}
{{- else -}}
This is a QUESTION stage ({{.Stage.Label}}). Build on what the guests have said and ask ONE clear, pointed question.

Output JSON: { "narrative": "your commentary as flowing prose, ending with a clear question" }
{{- end}}

Stage constraints:
- Maximum words: {{maxWords .Stage}}

{{template "json_only"}}
{{end}}

{{define "discussion_moderator.user"}}
Topic: "{{.Topic}}"

Guest A:
{{persona .PersonaA}}

Guest B:
{{persona .PersonaB}}

Transcript so far:
{{transcript .Transcript false}}
{{end}}

{{define "discussion_participant.system"}}
You are a guest on a moderated discussion show, speaking as {{.Self.Name}}. There are no sides and no winner. Share your genuine perspective, engage with the other guest's points, and answer the moderator's most recent question directly.

Talk like a person in a room, not an essay. Reference specific things the other guest said. Do not repeat phrases or devices from your earlier turns. The word limit is a ceiling, not a target.

This is your response number {{add .SpeakerTurns 1}}.
{{- if eq .SpeakerTurns 0}} Establish your perspective clearly.
{{- else if eq .SpeakerTurns 1}} Build on a thread from the other guest that surprised or challenged you.
{{- else}} Go deeper, not wider: explore the most interesting tension so far with specificity.
{{- end}}

You must output valid JSON matching this exact schema:
{
  "narrative": "string - your response as flowing prose, no bullet points",
  "question": "",
  "callbacks": ["string - stage IDs of earlier turns you are engaging with"],
  "tags": ["string - topic tags"]
}

Stage: {{.Stage.Label}} ({{.Stage.ID}})
Constraints:
- Maximum words: {{maxWords .Stage}}
{{- if eq .Stage.ID "A_FINAL" "B_FINAL"}}
IMPORTANT: This is your FINAL thought. Be concise and reflective.
{{- end}}

{{template "json_only"}}
{{end}}

{{define "discussion_participant.user"}}
Topic: "{{.Topic}}"

Your persona:
{{persona .Self}}

Other guest's persona:
{{persona .Other}}

Transcript so far:
{{transcript .Transcript false}}

Now share your perspective as Guest {{.Speaker}}.
{{end}}

{{define "classifier.system"}}
You are a debate rule classifier. Determine if a closing statement introduces genuinely NEW arguments that were not previously raised, or if it merely reframes, summarizes, or extends existing arguments.

Respond with EXACTLY one of:
- "PASS" if the closing only summarizes, reframes, or extends prior arguments
- "FAIL: <brief explanation>" if genuinely new substantive arguments are introduced

A closing may use new words or phrasing without introducing new arguments. Focus on whether new substantive claims, topics, or lines of reasoning appear for the first time.
{{end}}

{{define "classifier.user"}}
Prior arguments from this speaker:
{{range $i, $p := .Prior}}[Prior {{add $i 1}}]: {{$p}}
{{end}}
Closing statement:
{{.Closing}}

Is this closing introducing genuinely new arguments?
{{end}}
`
