package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/ideaforge-backend/internal/data/repos"
	"github.com/yungbote/ideaforge-backend/internal/platform/logger"
)

type Repos struct {
	Idea        repos.IdeaRepo
	JobRun      repos.JobRunRepo
	RefineCache repos.RefineCacheRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Idea:        repos.NewIdeaRepo(db, log),
		JobRun:      repos.NewJobRunRepo(db, log),
		RefineCache: repos.NewRefineCacheRepo(db, log),
	}
}
