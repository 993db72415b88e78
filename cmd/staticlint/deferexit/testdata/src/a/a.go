package a

import (
	"log"
	"os"
)

func cleanup() {}

func exitAfterDefer() {
	defer cleanup()
	os.Exit(1) // want `os.Exit skips the deferred calls of this function`
}

func fatalAfterDefer() {
	defer cleanup()
	log.Fatalf("failed: %d", 1) // want `log.Fatalf skips the deferred calls of this function`
}

func loggerFatalAfterDefer(logger *log.Logger) {
	defer cleanup()
	logger.Fatal("failed") // want `log.Fatal skips the deferred calls of this function`
}

func exitWithoutDefer() {
	os.Exit(run())
}

func run() int {
	defer cleanup()
	return 0
}

func exitInLiteral() {
	defer cleanup()
	go func() {
		os.Exit(2)
	}()
}

func deferInLiteral() {
	exit := func() {
		defer cleanup()
		os.Exit(3) // want `os.Exit skips the deferred calls of this function`
	}
	exit()
}
