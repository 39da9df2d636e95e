package tutor

import (
	"github.com/AazainKhan/luminate-ai-sub000/internal/agents"
	"github.com/AazainKhan/luminate-ai-sub000/internal/diagnosis"
	"github.com/AazainKhan/luminate-ai-sub000/internal/student"
)

// judge turns the diagnosis of the learner's message into a logged
// outcome and the evidence for the student model. Confusion is logged but
// moves no mastery.
func judge(r *diagnosis.Result) (student.InteractionOutcome, student.Performance) {
	if r == nil {
		return student.LogPassive, student.Performance{Outcome: student.OutcomePassive}
	}
	conf := min(max(r.Confidence, 0), 1)
	switch r.Category {
	case diagnosis.CategoryCorrect:
		return student.LogCorrect, student.Performance{Outcome: student.OutcomeCorrect, Confidence: conf}
	case diagnosis.CategoryIncorrect, diagnosis.CategoryMisconception:
		return student.LogIncorrect, student.Performance{Outcome: student.OutcomeIncorrect, Confidence: 1 - conf}
	case diagnosis.CategoryConfusion:
		return student.LogConfusionDetected, student.Performance{Outcome: student.OutcomePassive}
	}
	return student.LogPassive, student.Performance{Outcome: student.OutcomePassive}
}

func interactionType(r *diagnosis.Result, kind agents.Kind) student.InteractionType {
	if r != nil {
		switch r.Category {
		case diagnosis.CategoryCorrect, diagnosis.CategoryIncorrect, diagnosis.CategoryMisconception:
			return student.InteractionQuizAttempt
		}
	}
	switch kind {
	case agents.KindExplainer, agents.KindMath:
		return student.InteractionExplanationViewed
	}
	return student.InteractionQuestion
}
