package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/noah-isme/sma-events-api/internal/models"
)

var errHelp = errors.New("help provided")

type fileTransfer interface {
	UploadFromPath(ctx context.Context, eventID, userID, path string) (*models.EventFile, error)
	Download(ctx context.Context, fileID, destPath string) (string, error)
}

type commandLine struct {
	files fileTransfer
	out   io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  upload -event EVENT_ID -user USER_ID -file PATH.pdf - submit a local PDF for an event")
	fmt.Fprintln(cli.out, "  download -id FILE_ID [-dest PATH] - write a stored submission to disk")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	uploadCmd := flag.NewFlagSet("upload", flag.ContinueOnError)
	uploadCmd.SetOutput(cli.out)
	uploadEvent := uploadCmd.String("event", "", "Event ID the submission belongs to.")
	uploadUser := uploadCmd.String("user", "", "Uploading student or owning teacher.")
	uploadFile := uploadCmd.String("file", "", "PDF path, relative paths resolve under FILES_DOWNLOAD_DIR.")

	downloadCmd := flag.NewFlagSet("download", flag.ContinueOnError)
	downloadCmd.SetOutput(cli.out)
	downloadID := downloadCmd.String("id", "", "File ID to fetch.")
	downloadDest := downloadCmd.String("dest", "", "Target path; empty or a trailing separator keeps the stored name.")

	switch args[1] {
	case "upload":
		if err := uploadCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *uploadEvent == "" || *uploadUser == "" || *uploadFile == "" {
			uploadCmd.Usage()
			return errHelp
		}
		file, err := cli.files.UploadFromPath(ctx, *uploadEvent, *uploadUser, *uploadFile)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "uploaded %s as %s (%s)\n", file.Name, file.ID, file.Status)
		return nil
	case "download":
		if err := downloadCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *downloadID == "" {
			downloadCmd.Usage()
			return errHelp
		}
		written, err := cli.files.Download(ctx, *downloadID, *downloadDest)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "wrote %s\n", written)
		return nil
	default:
		cli.printUsage()
		return errHelp
	}
}
