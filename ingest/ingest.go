// Package ingest implements dataset acquisition: it fetches a labeled text
// corpus, clears the example root, and materializes train/eval shards plus a
// label vocabulary.
package ingest

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"math/rand"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/gocarina/gocsv"
	"github.com/sentiml/sentiml/config"
	"github.com/sentiml/sentiml/errors"
	"github.com/sentiml/sentiml/example"
	"github.com/sentiml/sentiml/fileutil"
	"github.com/sentiml/sentiml/logging"
)

func init() {
	// the corpus is tab-separated; quotes appear freely in review text
	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		r := csv.NewReader(in)
		r.Comma = '\t'
		r.LazyQuotes = true
		return r
	})
}

// Row is one row of the remote corpus: a sentiment name and the review
// text, tab-separated with a header row.
type Row struct {
	Sentiment string `csv:"sentiment"`
	Text      string `csv:"text"`
}

// Fetch downloads and parses the corpus at url (local path, http(s) URL or
// s3:// URI).
func Fetch(url string) ([]Row, error) {
	r, err := fileutil.NewReader(url)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to fetch corpus %s", url)
	}
	defer r.Close()

	var rows []Row
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, errors.Wrapf(err, "unable to parse corpus %s", url)
	}
	if len(rows) == 0 {
		return nil, errors.Errorf("corpus %s contains no rows", url)
	}
	return rows, nil
}

// Run acquires the dataset. Destructive: any prior contents under the
// example root are cleared before writing.
func Run(conf config.Config) error {
	rows, err := Fetch(conf.Dataset.URL)
	if err != nil {
		return err
	}
	logging.Sugar.Infof("fetched %s rows from %s for dataset %s",
		humanize.Comma(int64(len(rows))), conf.Dataset.URL, conf.Dataset.Name)

	vocab := labelVocab(rows)
	labelIDs := make(map[string]int, len(vocab))
	for i, name := range vocab {
		labelIDs[name] = i
	}

	examples := make([]example.Example, 0, len(rows))
	for _, row := range rows {
		examples = append(examples, example.Example{
			Text:  row.Text,
			Label: labelIDs[row.Sentiment],
		})
	}

	rng := rand.New(rand.NewSource(conf.Dataset.Seed))
	rng.Shuffle(len(examples), func(i, j int) {
		examples[i], examples[j] = examples[j], examples[i]
	})

	numEval := int(float64(len(examples)) * conf.Dataset.EvalFraction)
	if numEval == 0 || numEval == len(examples) {
		return errors.Errorf("eval fraction %f leaves an empty split for %d examples",
			conf.Dataset.EvalFraction, len(examples))
	}
	eval, train := examples[:numEval], examples[numEval:]

	examplesRoot := fileutil.Join(conf.Root, "examples")
	if err := fileutil.ClearDir(examplesRoot); err != nil {
		return err
	}

	if err := example.WriteShards(conf.ExamplesDir(config.TrainSplit), train, conf.Dataset.NumShards); err != nil {
		return errors.Wrapf(err, "unable to write train shards")
	}
	if err := example.WriteShards(conf.ExamplesDir(config.EvalSplit), eval, conf.Dataset.NumShards); err != nil {
		return errors.Wrapf(err, "unable to write eval shards")
	}

	data, err := json.Marshal(example.LabelVocab(vocab))
	if err != nil {
		return err
	}
	if err := fileutil.WriteFile(conf.LabelVocabPath(), data); err != nil {
		return errors.Wrapf(err, "unable to write label vocab")
	}

	logging.Sugar.Infof("wrote %s train and %s eval examples, labels %v",
		humanize.Comma(int64(len(train))), humanize.Comma(int64(len(eval))), vocab)
	return nil
}

// labelVocab returns the distinct sentiment names in sorted order, so label
// ids are stable across reruns of the same corpus.
func labelVocab(rows []Row) []string {
	seen := make(map[string]struct{})
	for _, row := range rows {
		seen[row.Sentiment] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
