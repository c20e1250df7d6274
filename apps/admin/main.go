package main

import (
	"fmt"
	"log"
	"os"

	"github.com/trezcool/kamusi/core"
	"github.com/trezcool/kamusi/core/card"
	"github.com/trezcool/kamusi/core/course"
	logsvc "github.com/trezcool/kamusi/services/logger"
	"github.com/trezcool/kamusi/storage/database"
	sqlxrepos "github.com/trezcool/kamusi/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	// set up DB
	if err := database.CreateIfNotExist(conf); err != nil {
		logger.Fatal(fmt.Sprintf("creating database: %v", err), err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	tx := database.NewTransactor(db)

	// start CLI; enrollment emails are never sent from here
	cli := &commandLine{
		conf:      conf,
		logger:    logger,
		db:        db,
		courseSvc: course.NewService(sqlxrepos.NewCourseRepository(db), tx, nil, conf),
		cardSvc:   card.NewService(sqlxrepos.NewCardRepository(db), tx),
		out:       os.Stdout,
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %v", err), err)
		}
		os.Exit(1)
	}
}
