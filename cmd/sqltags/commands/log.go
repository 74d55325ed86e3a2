package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tagworks/sqltags/errors"
	"github.com/tagworks/sqltags/logger"
	"github.com/tagworks/sqltags/sqltags"
	"github.com/tagworks/sqltags/tagset"
)

// categoriesPrefixRe matches a leading "word[,word...]:" category prefix
// on a log headline.
var categoriesPrefixRe = regexp.MustCompile(`(?i)^([a-z]\w*(,[a-z]\w*)*):\s*`)

// LogCmd represents the log command
var LogCmd = &cobra.Command{
	Use:   "log [-c category,...] [-d when] [-D layout] {-|headline} [tags...]",
	Short: "Record log entries",
	Long: `Record timestamped log entries into the database.

Each entry is an unnamed entity with a headline tag, optional categories
and any additional tags given on the command line. If headline is '-',
headlines are read from standard input, one entry per line.

Categories default to a leading "CAT,CAT,...:" prefix on the headline:

  sqltags log 'work,kernel: fixed the lock ordering'

records headline="fixed the lock ordering" categories=["work","kernel"].`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLog,
}

var (
	logCategoriesFlag string
	logWhenFlag       string
	logLayoutFlag     string
)

func init() {
	LogCmd.Flags().StringVarP(&logCategoriesFlag, "categories", "c", "", "Comma-separated categories for this entry")
	LogCmd.Flags().StringVarP(&logWhenFlag, "when", "d", "", "ISO8601 timestamp for this entry")
	LogCmd.Flags().StringVarP(&logLayoutFlag, "layout", "D", "", "Time layout read from the start of each headline")
}

func runLog(cmd *cobra.Command, args []string) error {
	if logWhenFlag != "" && logLayoutFlag != "" {
		return errors.New("-d and -D are mutually exclusive")
	}

	var when float64
	if logWhenFlag != "" {
		dt, err := parseWhen(logWhenFlag)
		if err != nil {
			return err
		}
		when = float64(dt.UnixNano()) / float64(time.Second)
	}

	var categories []string
	if cmd.Flags().Changed("categories") {
		categories = splitCategories(logCategoriesFlag)
	}

	extraTags, err := parseLogTags(args[1:])
	if err != nil {
		return err
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.DB().Close()

	ctx := cmd.Context()
	if args[0] == "-" {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			if err := logEntry(ctx, store, scanner.Text(), when, categories, extraTags); err != nil {
				return err
			}
		}
		return errors.Wrap(scanner.Err(), "reading headlines")
	}
	return logEntry(ctx, store, args[0], when, categories, extraTags)
}

// logEntry records one headline as an unnamed entity.
func logEntry(ctx context.Context, store *sqltags.Store, headline string, when float64, categories []string, extraTags []tagset.Tag) error {
	unixtime := when
	if logLayoutFlag != "" {
		extracted, rest, err := extractLeadingTime(headline, logLayoutFlag)
		if err != nil {
			logger.Logger.Warnw("cannot parse leading time, using current time",
				"headline", headline, "error", err)
		} else {
			unixtime = extracted
			headline = rest
		}
	}

	entryCategories := categories
	if entryCategories == nil {
		entryCategories, headline = parseCategoryPrefix(headline)
	}

	tags := tagset.NewTagSet(store.Ontology())
	for _, tag := range extraTags {
		tags.Set(tag.Name, tag.Value)
	}
	tags.Set("headline", headline)
	if len(entryCategories) > 0 {
		values := make([]interface{}, len(entryCategories))
		for i, category := range entryCategories {
			values[i] = category
		}
		tags.Set("categories", values)
	}

	entity, err := store.Add(ctx, "", unixtime, tags)
	if err != nil {
		return errors.Wrap(err, "failed to record log entry")
	}
	fmt.Printf("%d %s %s\n", entity.ID, entity.When().Format(time.RFC3339), entity.Tags)
	return nil
}

// parseCategoryPrefix recognises a leading "cat,cat:" prefix on a headline,
// returning the lowercased categories and the remaining headline.
func parseCategoryPrefix(headline string) ([]string, string) {
	m := categoriesPrefixRe.FindStringSubmatch(headline)
	if m == nil {
		return nil, headline
	}
	return splitCategories(m[1]), headline[len(m[0]):]
}

// splitCategories splits a comma-separated category list, lowercasing and
// dropping empty entries.
func splitCategories(s string) []string {
	var categories []string
	for _, category := range strings.Split(s, ",") {
		if category == "" {
			continue
		}
		categories = append(categories, strings.ToLower(category))
	}
	return categories
}

// extractLeadingTime parses the leading fields of headline with the given
// time layout, returning the parsed time as unixtime and the remaining
// headline text.
func extractLeadingTime(headline, layout string) (float64, string, error) {
	layout = strings.Join(strings.Fields(layout), " ")
	layoutWords := len(strings.Fields(layout))
	headParts := strings.Fields(headline)
	if len(headParts) < layoutWords {
		return 0, headline, errors.Newf("not enough fields in headline %q for layout %q", headline, layout)
	}
	timeText := strings.Join(headParts[:layoutWords], " ")
	dt, err := time.ParseInLocation(layout, timeText, time.Local)
	if err != nil {
		return 0, headline, errors.Wrapf(err, "cannot parse %q", timeText)
	}
	rest := strings.Join(headParts[layoutWords:], " ")
	return float64(dt.UnixNano()) / float64(time.Second), rest, nil
}

// parseWhen parses an ISO8601-ish timestamp in the local zone.
func parseWhen(s string) (time.Time, error) {
	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	} {
		if dt, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return dt, nil
		}
	}
	return time.Time{}, errors.Newf("unhandled ISO format date: %q", s)
}

// parseLogTags parses trailing tag arguments, rejecting negations.
func parseLogTags(args []string) ([]tagset.Tag, error) {
	var tags []tagset.Tag
	for _, arg := range args {
		if strings.HasPrefix(arg, "-") || strings.HasPrefix(arg, "!") {
			return nil, errors.Newf("negative tag choice %q", arg)
		}
		tag, err := tagset.ParseTag(arg, nil)
		if err != nil {
			return nil, errors.Wrapf(err, "bad tag %q", arg)
		}
		tags = append(tags, tag)
	}
	return tags, nil
}
