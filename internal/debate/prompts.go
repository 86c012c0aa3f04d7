package debate

import (
	"fmt"
	"strings"

	"llmcouncil/internal/model"
)

const devilsAdvocateInstruction = `

SPECIAL ROLE THIS ROUND: You are the devil's advocate. Whatever the emerging
consensus of the debate appears to be, argue the opposite position as
convincingly as you can, even if it conflicts with your earlier statements.`

func speakSystemPrompt(p model.Participant, others []string, round int, isDevilsAdvocate bool) string {
	prompt := fmt.Sprintf(`You are %s, participating in a council debate with other AI models (%s).

%s

RULES:
- This is round %d of the debate
- Keep responses focused and concise (2-3 paragraphs max, under 400 tokens)
- You may agree, disagree, or build upon other participants' points
- Support your position with reasoning
- Be respectful but don't shy away from constructive disagreement
- Address points made by others when relevant
- IMPORTANT: Always provide a complete response. Never stop mid-sentence.`,
		p.Name, strings.Join(others, ", "), p.Personality, round)

	if isDevilsAdvocate {
		prompt += devilsAdvocateInstruction
	}
	return prompt
}

func speakUserPrompt(question, history string, round int) string {
	if round == 1 {
		return fmt.Sprintf(`The question for debate is: "%s"

Please share your initial position and reasoning. Keep it concise.`, question)
	}
	return fmt.Sprintf(`The question for debate is: "%s"

Previous discussion:
%s

Please respond to the discussion, addressing points made by others and refining your position. Keep it concise.`,
		question, history)
}

func crossExamQuestionPrompt(asker, target model.Participant, targetMessages []model.Message, question string) (system, user string) {
	system = fmt.Sprintf(`You are %s in a council debate cross-examination phase.

%s

Pose ONE short, pointed, challenging question (2-3 sentences max) to %s about their argument. Reference their actual statements. Output only the question itself.`,
		asker.Name, asker.Personality, target.Name)

	var quoted []string
	for _, msg := range targetMessages {
		quoted = append(quoted, target.Name+": "+msg.Content)
	}
	user = fmt.Sprintf(`The debate question was: "%s"

%s's most recent statements:
%s

Ask your challenging question now.`, question, target.Name, strings.Join(quoted, "\n\n"))
	return system, user
}

func crossExamAnswerPrompt(target, asker model.Participant, targetMessages []model.Message, debateQuestion, examQuestion string) (system, user string) {
	system = fmt.Sprintf(`You are %s in a council debate cross-examination phase.

%s

%s has challenged your argument. Give a short, direct defense (2-3 sentences max). Stand your ground or concede specific points honestly.`,
		target.Name, target.Personality, asker.Name)

	var quoted []string
	for _, msg := range targetMessages {
		quoted = append(quoted, target.Name+": "+msg.Content)
	}
	user = fmt.Sprintf(`The debate question was: "%s"

Your most recent statements:
%s

%s asks: %s

Answer now.`, debateQuestion, strings.Join(quoted, "\n\n"), asker.Name, examQuestion)
	return system, user
}

func peerVoteSystemPrompt(voter model.Participant) string {
	return fmt.Sprintf(`You are %s, an impartial judge evaluating a debate.

%s

Your task is to vote for the participant (other than yourself) who made the BEST argument in this debate.

You must respond in the following JSON format ONLY (no other text):
{
  "votedFor": "name of the participant you're voting for",
  "position": "The position/answer they advocated for",
  "reasoning": "Why their argument was the best (2-3 sentences)",
  "score": <number 1-10 representing how convincing their argument was>
}

Rules:
- You CANNOT vote for yourself (%s)
- Score from 1-10 (10 = most convincing)
- Consider: logic, evidence, clarity, and persuasiveness
- Be objective and fair in your evaluation

IMPORTANT: Return ONLY valid JSON. No markdown, no extra text.`, voter.Name, voter.Personality, voter.Name)
}

func peerVoteUserPrompt(question, summaries string) string {
	return fmt.Sprintf(`The debate question: "%s"

Arguments from each participant:

%s

Evaluate all arguments and vote for who made the best case. Return your vote in the specified JSON format.`,
		question, summaries)
}

func confidenceVoteSystemPrompt(voter model.Participant) string {
	return fmt.Sprintf(`You are %s. After a thorough debate, you must now cast your final vote on the question.

%s

You must respond in the following JSON format ONLY (no other text):
{
  "position": "Your final answer/position in one sentence",
  "reasoning": "Brief explanation of why you reached this conclusion (2-3 sentences)",
  "confidence": <number between 0 and 100 representing your confidence percentage>
}`, voter.Name, voter.Personality)
}

func confidenceVoteUserPrompt(question, history string) string {
	return fmt.Sprintf(`The question was: "%s"

The full debate:
%s

Now cast your final vote with your position, reasoning, and confidence level.`, question, history)
}
