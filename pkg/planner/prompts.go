package planner

// SystemPrompt tells the model what a plan looks like.
const SystemPrompt = `You are a web automation planner. Given page text/HTML and a user task, ` +
	`produce a JSON array (and ONLY JSON) of the minimal steps needed to accomplish the task. ` +
	`Each step must be one of: click, fill, submit, navigate, wait. ` +
	`For click/fill/submit include a selector and selector type (css/xpath/id/name/link_text). ` +
	`For 'fill' include 'value'. For 'wait' include 'value' seconds. For 'navigate' include 'value' which is the URL. ` +
	`Keep steps robust and minimal. Do not invent credentials or sensitive content.`

// ExampleOutput is appended to every user prompt.
const ExampleOutput = `[
  {"action":"click","by":"css","selector":"#btn-continue"},
  {"action":"fill","by":"name","selector":"email","value":"example@example.com"},
  {"action":"click","by":"css","selector":"button.submit"}
]`

const userPromptTemplate = `Page URL: %s

Page text/HTML snippet (shortened):
%s

User task: %s

Return only JSON. Example output:
%s
`
