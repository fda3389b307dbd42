package rastvec

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gocloud.dev/blob"
	"gocloud.dev/blob/memblob"
)

type OrganizeSuite struct {
	suite.Suite
	ctx    context.Context
	source *blob.Bucket
	target *blob.Bucket
}

func (s *OrganizeSuite) SetupTest() {
	s.ctx = context.Background()
	s.source = memblob.OpenBucket(nil)
	s.target = memblob.OpenBucket(nil)
	for key, body := range map[string]string{
		"csv/a_vectorized.csv":         "raw a",
		"csv/a_vectorized_cleaned.csv": "clean a",
		"csv/b_vectorized_cleaned.csv": "clean b",
		"csv/nested/c_cleaned.csv":     "nested",
		"vector/a_points.shp":          "shp",
		"vector/a_points.dbf":          "dbf",
	} {
		s.Require().NoError(s.source.WriteAll(s.ctx, key, []byte(body), nil))
	}
}

func (s *OrganizeSuite) TearDownTest() {
	s.source.Close()
	s.target.Close()
}

func (s *OrganizeSuite) keys(b *blob.Bucket) (keys []string) {
	iter := b.List(nil)
	for {
		obj, err := iter.Next(s.ctx)
		if err != nil {
			break
		}
		keys = append(keys, obj.Key)
	}
	sort.Strings(keys)
	return
}

func (s *OrganizeSuite) TestRules() {
	report, err := OrganizeBuckets(s.ctx, s.source, s.target, OrganizeConfig{
		Dirs: []string{"raw_data", "/processed_data/csv/"},
		Rules: []OrganizeRule{
			{Pattern: "*_cleaned.csv", Prefix: "csv", Dest: "processed_data/csv"},
			{Pattern: "a_points.*", Prefix: "/vector/", Dest: "processed_data/vector"},
		},
	})
	s.Require().NoError(err)
	s.Equal(OrganizeReport{Dirs: 2, Copied: 4}, report)
	s.Equal([]string{
		"processed_data/csv/.gitkeep",
		"processed_data/csv/a_vectorized_cleaned.csv",
		"processed_data/csv/b_vectorized_cleaned.csv",
		"processed_data/vector/a_points.dbf",
		"processed_data/vector/a_points.shp",
		"raw_data/.gitkeep",
	}, s.keys(s.target))

	body, err := s.target.ReadAll(s.ctx, "processed_data/csv/b_vectorized_cleaned.csv")
	s.Require().NoError(err)
	s.Equal("clean b", string(body))
}

func (s *OrganizeSuite) TestSkipExisting() {
	s.Require().NoError(s.target.WriteAll(s.ctx, "out/a_vectorized_cleaned.csv", []byte("keep me"), nil))
	cfg := OrganizeConfig{
		Rules:        []OrganizeRule{{Pattern: "*_cleaned.csv", Prefix: "csv", Dest: "out"}},
		SkipExisting: true,
	}
	report, err := OrganizeBuckets(s.ctx, s.source, s.target, cfg)
	s.Require().NoError(err)
	s.Equal(OrganizeReport{Copied: 1, Skipped: 1}, report)
	body, err := s.target.ReadAll(s.ctx, "out/a_vectorized_cleaned.csv")
	s.Require().NoError(err)
	s.Equal("keep me", string(body))

	cfg.SkipExisting = false
	report, err = OrganizeBuckets(s.ctx, s.source, s.target, cfg)
	s.Require().NoError(err)
	s.Equal(2, report.Copied)
	body, err = s.target.ReadAll(s.ctx, "out/a_vectorized_cleaned.csv")
	s.Require().NoError(err)
	s.Equal("clean a", string(body))
}

func (s *OrganizeSuite) TestReadme() {
	readme := filepath.Join(s.T().TempDir(), "README.md")
	s.Require().NoError(os.WriteFile(readme, []byte("# Project"), 0o644))
	report, err := OrganizeBuckets(s.ctx, nil, s.target, OrganizeConfig{Readme: readme})
	s.Require().NoError(err)
	s.Equal(1, report.Copied)

	report, err = OrganizeBuckets(s.ctx, nil, s.target, OrganizeConfig{Readme: readme + ".missing"})
	s.Require().NoError(err)
	s.Equal(1, report.Failed)
}

func (s *OrganizeSuite) TestBadPattern() {
	_, err := OrganizeBuckets(s.ctx, s.source, s.target, OrganizeConfig{
		Rules: []OrganizeRule{{Pattern: "[", Dest: "x"}},
	})
	s.ErrorIs(err, ErrInvalidConfig)
}

func TestOrganizeSuite(t *testing.T) {
	suite.Run(t, new(OrganizeSuite))
}

func TestOrganizeFileBuckets(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeFile(t, filepath.Join(src, "csv", "a_vectorized_cleaned.csv"), "clean a")

	report, err := Organize(context.Background(), OrganizeConfig{
		Source: "file://" + filepath.ToSlash(src) + "?metadata=skip",
		Target: "file://" + filepath.ToSlash(dst) + "?metadata=skip",
		Dirs:   []string{"raw_data"},
		Rules:  []OrganizeRule{{Pattern: "*.csv", Prefix: "csv", Dest: "processed/csv"}},
	})
	require.NoError(t, err)
	assert.Equal(t, OrganizeReport{Dirs: 1, Copied: 1}, report)
	assert.FileExists(t, filepath.Join(dst, "raw_data", ".gitkeep"))
	data, err := os.ReadFile(filepath.Join(dst, "processed", "csv", "a_vectorized_cleaned.csv"))
	require.NoError(t, err)
	assert.Equal(t, "clean a", string(data))

	_, err = Organize(context.Background(), OrganizeConfig{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = Organize(context.Background(), OrganizeConfig{Target: "mem://", Rules: []OrganizeRule{{Pattern: "*"}}})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
