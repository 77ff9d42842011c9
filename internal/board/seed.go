package board

// SeedTasks returns the sample goals a brand new board starts with.
func SeedTasks() []Task {
	seed := []struct {
		title, role, action, goal string
	}{
		{"Master the Tarot", "Diviner", "practice daily one-card pulls", "build intuition and card knowledge"},
		{"Set Up Ancestor Altar", "Witch", "gather photos, offerings, and a suitable space", "honor my lineage and connect with ancestors"},
		{"Learn LBRP", "Student of the Occult", "memorize the first two stanzas", "practice it daily without notes"},
	}

	tasks := make([]Task, 0, len(seed))
	for _, s := range seed {
		tasks = append(tasks, Task{
			ID:               newID(),
			Title:            s.title,
			Role:             s.role,
			Action:           s.action,
			Goal:             s.goal,
			Status:           StatusBacklog,
			DefinitionOfDone: []ChecklistItem{},
			DailyStandups:    []DailyStandup{},
		})
	}
	return tasks
}
