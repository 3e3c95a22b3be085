// Загрузка каталога правил из YAML в Mongo
// -watch: повторная загрузка при изменении файла
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	db "github.com/glkeru/loyalty/rules/internal/db"
	services "github.com/glkeru/loyalty/rules/internal/services"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	file := flag.String("file", "rules.yaml", "каталог правил")
	watch := flag.Bool("watch", false, "загружать повторно при изменении файла")
	flag.Parse()

	// log
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := godotenv.Load(); err != nil {
		logger.Info(".env is not loaded", zap.Error(err))
	}

	rules, err := db.NewRulesDB()
	if err != nil {
		panic(err)
	}
	defer rules.Close(context.Background())
	engine := services.NewRuleEngineService(services.Stores{Rules: rules}, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	load := func() error {
		data, err := os.ReadFile(*file)
		if err != nil {
			return err
		}
		catalog, err := services.ParseCatalog(data)
		if err != nil {
			return err
		}
		_, _, err = engine.ImportCatalog(ctx, catalog)
		return err
	}

	if err := load(); err != nil {
		logger.Error("import", zap.String("file", *file), zap.Error(err))
		if !*watch {
			os.Exit(1)
		}
	}
	if !*watch {
		return
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		panic(err)
	}
	defer watcher.Close()
	// каталог, а не файл: редакторы пишут через rename
	if err := watcher.Add(filepath.Dir(*file)); err != nil {
		panic(err)
	}
	name := filepath.Clean(*file)

	// редакторы пишут файл несколькими событиями
	var reload <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != name || !event.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			reload = time.After(300 * time.Millisecond)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Error("watch", zap.Error(err))
		case <-reload:
			reload = nil
			if err := load(); err != nil {
				logger.Error("import", zap.String("file", *file), zap.Error(err))
			}
		}
	}
}
