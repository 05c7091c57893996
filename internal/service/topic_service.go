package service

import "f1-rag-go/internal/model"

var availableTopics = []model.Topic{
	{ID: "teams", Name: "F1 Teams", Description: "Current and historical Formula 1 teams"},
	{ID: "drivers", Name: "F1 Drivers", Description: "Driver profiles and career statistics"},
	{ID: "circuits", Name: "F1 Circuits", Description: "The tracks that host Grands Prix"},
	{ID: "regulations", Name: "F1 Regulations", Description: "Technical and sporting rules"},
	{ID: "history", Name: "F1 History", Description: "Milestones from 1950 onwards"},
	{ID: "current", Name: "Current Season", Description: "The ongoing championship season"},
}

// AvailableTopics 返回对外展示的主题目录。
func AvailableTopics() []model.Topic {
	out := make([]model.Topic, len(availableTopics))
	copy(out, availableTopics)
	return out
}
