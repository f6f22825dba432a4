// Package prompts provides the role and phase prompt templates and the
// placeholder rendering used to build system preambles and phase openers.
package prompts

import "strings"

// Library holds named role and phase templates plus the one-shot
// bootstrap prompts.
type Library struct {
	Background  string            `yaml:"background"`
	Roles       map[string]string `yaml:"roles"`
	Phases      map[string]string `yaml:"phases"`
	TaskSpecify string            `yaml:"task_specify"`
	TaskPlan    string            `yaml:"task_plan"`
}

const defaultAssistantRole = `{background}Never forget you are a {assistant_role} and I am a {user_role}. Never flip roles!
We share a common interest in collaborating to successfully complete a task.
Here is the task: {task}. Never forget our task!
I will instruct you based on your expertise and my needs to complete the task.
Unless I say the task is completed, you should always respond with a solution
that is specific, decisive, and complete. Do not ask questions back.`

const defaultUserRole = `{background}Never forget you are a {user_role} and I am a {assistant_role}. Never flip roles!
We share a common interest in collaborating to successfully complete a task.
Here is the task: {task}. Never forget our task!
You must instruct me, based on my expertise, to complete the task with one
instruction at a time. When the task is completed, reply with a single line
starting with <INFO> followed by the final deliverable.`

const defaultTaskSpecify = `Here is a task that {assistant_role} will help {user_role} to complete: {task}.
Please make it more specific. Be creative and imaginative.
Reply with the specified task in 50 words or less. Do not add anything else.`

const defaultTaskPlan = `Divide the task: {task} into subtasks.
Reply with an ordered, numbered subtask list. Do not add anything else.`

const defaultDiscussionPhase = `{assistant_role}, we are working on: {task}.
{examples}Discuss and produce the deliverable. When it is final, end with a line
starting with <INFO> followed by the result.`

// Default returns the embedded template library.
func Default() *Library {
	return &Library{
		Roles: map[string]string{
			"assistant": defaultAssistantRole,
			"user":      defaultUserRole,
		},
		Phases: map[string]string{
			"discussion": defaultDiscussionPhase,
		},
		TaskSpecify: defaultTaskSpecify,
		TaskPlan:    defaultTaskPlan,
	}
}

// Role returns a role template by name, falling back to the embedded
// defaults when absent.
func (l *Library) Role(name string) string {
	if tmpl, ok := l.Roles[name]; ok {
		return tmpl
	}
	return Default().Roles[name]
}

// Phase returns a phase template by name, falling back to the embedded
// defaults when absent.
func (l *Library) Phase(name string) string {
	if tmpl, ok := l.Phases[name]; ok {
		return tmpl
	}
	return Default().Phases[name]
}

// Render substitutes {key} placeholders in a template. Unknown
// placeholders are left intact so partially-rendered templates can be
// rendered again later with more context.
func Render(template string, placeholders map[string]string) string {
	if len(placeholders) == 0 {
		return template
	}
	pairs := make([]string, 0, len(placeholders)*2)
	for k, v := range placeholders {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
