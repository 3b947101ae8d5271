package ai

import (
	"fmt"
	"strings"
)

// Category and difficulty labels the classifiers recognize, in match order.
var (
	Categories   = []string{"Work", "Personal", "Learning", "Health", "Shopping", "Other"}
	Difficulties = []string{"Easy", "Moderate", "Hard"}
)

// CategoryPrompt asks for a single category for task.
func CategoryPrompt(task string) string {
	return fmt.Sprintf("Classify the following task into one single category: [%s]. Return ONLY the single best category name. Task: '%s'",
		strings.Join(Categories, ", "), task)
}

// DifficultyPrompt asks for a single difficulty for task.
func DifficultyPrompt(task string) string {
	return fmt.Sprintf("Classify this task's difficulty: [%s]. Return ONLY the single best difficulty level. Task: '%s'",
		strings.Join(Difficulties, ", "), task)
}

// TimeEstimatePrompt asks for an estimate in minutes.
func TimeEstimatePrompt(task, difficulty string) string {
	return fmt.Sprintf("Estimate the time in minutes to complete this task. The task is '%s' and its difficulty is '%s'. Return ONLY a single number (e.g., '45').",
		task, difficulty)
}

const subTaskInstructions = `You are an expert productivity coach. A user wants to tackle a big task.

Break the task down into 3-5 highly detailed and actionable sub-tasks.
For each sub-task:
1. Start with a clear action verb.
2. Briefly explain *why* this step is important or *how* to approach it.
3. Use markdown **bold** for the main action/concept.
4. Use markdown *italics* for any specific tools or key terms.

Return ONLY the bulleted list. Do not add any intro or conclusion.

EXAMPLE:
USER GOAL: "Learn a web framework"
YOUR OUTPUT:
- **Research** core concepts: Start with *routing*, *handlers* and *middleware* to see how requests flow.
- **Set up** a basic project: Install the framework and create a minimal server.
- **Build** a read-only endpoint: Return a list of items as JSON.
- **Test** the endpoint: Use *curl* to call it and inspect the response.
`

// SubTaskPrompt asks for a bulleted breakdown of task.
func SubTaskPrompt(task string) string {
	return subTaskInstructions + fmt.Sprintf("\nNOW, DO THE SAME FOR THIS TASK: %q\nYOUR OUTPUT:", task)
}

const studyPlanInstructions = `You are an expert academic advisor creating a highly detailed study plan.
Student's Subject: %q
Student's Goal: %q
Total Duration: %d days.

Create a realistic, day-by-day plan.

CRITICAL INSTRUCTIONS:
1. For EACH day, provide a clear, meaningful title.
2. For EACH day, provide a list of at least 4-5 highly detailed tasks.
3. Do not just list topics. For each task explain *how* to do it or *what* to focus on.

CRITICAL FORMATTING RULES:
1. Start each day with: ## Day 1: [Meaningful Day Title]
2. Start each task with a bullet point (- ).
3. Use **bold** for the main action and *italics* for tools or terms.

EXAMPLE OUTPUT:
## Day 1: Introduction to Node.js
- **Set Up Environment**: Install the latest LTS version of *Node.js* and verify it with node -v.
- **Create First Server**: Write a server.js that uses the *http* module to answer 'Hello, World!'.

Return ONLY the plan. Do not add any introductory or concluding text.
`

// StudyPlanPrompt asks for a day-by-day plan using "## Day N: Title" headers.
func StudyPlanPrompt(subject, goal string, days int) string {
	return fmt.Sprintf(studyPlanInstructions, subject, goal, days) +
		fmt.Sprintf("\nNOW, DO THE SAME FOR: %q with the goal %q\nYOUR OUTPUT:", subject, goal)
}

// RelaxPrompt asks for quick refreshing activities.
const RelaxPrompt = `I have zero motivation to work right now. I feel completely burnt out.
Suggest 5 simple, actionable, and very quick (under 10 minutes) activities to refresh my mind.
Examples could be: taking a short walk, listening to a song, simple breathing exercises, drinking water, or stretching.
Return ONLY a bulleted or numbered list of these suggestions. Do not add any extra text before or after the list.`
