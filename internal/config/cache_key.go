package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// ExamPaperKey returns the cache key for the student-facing paper of an exam.
func (r *CacheKeyStruct) ExamPaperKey(examID string) string {
	return fmt.Sprintf("exam:%s:paper", examID)
}

// ExamAnswerSheetKey returns the cache key for an exam's graded question set.
func (r *CacheKeyStruct) ExamAnswerSheetKey(examID string) string {
	return fmt.Sprintf("exam:%s:answer_sheet", examID)
}

// DraftAnswersKey returns the hash holding a user's autosaved answers.
func (r *CacheKeyStruct) DraftAnswersKey(examID, userID string) string {
	return fmt.Sprintf("user:%s:exam:%s:draft", userID, examID)
}

// ExamMonitorChannel returns the Redis PubSub channel name for an exam monitor
func (r *CacheKeyStruct) ExamMonitorChannel(examID string) string {
	return fmt.Sprintf("exam:%s:monitor", examID)
}

var CacheKey = NewCacheKeyStruct()
