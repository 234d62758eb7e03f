// Package skills implements the canonical skill normalizer (C1) shared by
// ingestion and the query path: trim/lowercase/strip punctuation, alias
// lookup, de-dupe preserving first-seen order.
package skills

import "strings"

// aliases maps a lowercased raw skill token to its canonical form. Seeded
// from the common aliasing rules a resume-matching system accumulates over
// time; expanded past the initial handful any alias table this size starts
// with, since recruiters spell the same skill a dozen ways.
var aliases = map[string]string{
	"js":            "javascript",
	"ts":            "typescript",
	"golang":        "go",
	"py":            "python",
	"py3":           "python",
	"python3":       "python",
	"node":          "node.js",
	"nodejs":        "node.js",
	"reactjs":       "react",
	"react.js":      "react",
	"vuejs":         "vue",
	"vue.js":        "vue",
	"angularjs":     "angular",
	"k8s":           "kubernetes",
	"docker-compose": "docker",
	"postgres":      "postgresql",
	"psql":          "postgresql",
	"mongo":         "mongodb",
	"aws":           "amazon web services",
	"amazon aws":    "amazon web services",
	"gcp":           "google cloud platform",
	"google cloud":  "google cloud platform",
	"azure cloud":   "azure",
	"ml":            "machine learning",
	"dl":            "deep learning",
	"nlp":           "natural language processing",
	"cv":            "computer vision",
	"ci/cd":         "ci-cd",
	"cicd":          "ci-cd",
	"tf":            "tensorflow",
	"sklearn":       "scikit-learn",
	"scikit learn":  "scikit-learn",
	"pytorch":       "pytorch",
	"torch":         "pytorch",
	"c plus plus":   "c++",
	"cpp":           "c++",
	"c sharp":       "c#",
	"csharp":        "c#",
	"dotnet":        ".net",
	"asp.net":       ".net",
	"rest api":      "rest",
	"restful":       "rest",
	"graphql api":   "graphql",
	"oop":           "object oriented programming",
	"oauth2":        "oauth",
	"mysql db":      "mysql",
	"nosql db":      "nosql",
	"elasticsearch": "elasticsearch",
	"elastic search": "elasticsearch",
	"es":            "elasticsearch",
	"rabbit mq":     "rabbitmq",
	"kafka streams": "kafka",
	"redis cache":   "redis",
	"django rest":   "django",
	"flask api":     "flask",
	"spring boot":   "spring",
	"springboot":    "spring",
	"linux/unix":    "linux",
	"unix":          "linux",
	"git/github":    "git",
	"github actions": "github-actions",
	"terraform iac": "terraform",
	"agile/scrum":   "agile",
	"scrum":         "agile",
	"tdd":           "test driven development",
	"bdd":           "behavior driven development",
	"ui/ux":         "ux",
	"html5":         "html",
	"css3":          "css",
	"sass/scss":     "sass",
	"scss":          "sass",
	"webpack.js":    "webpack",
	"next.js":       "nextjs",
	"nuxt.js":       "nuxtjs",
	"express.js":    "express",
	"expressjs":     "express",
	"jquery.js":     "jquery",
	"powerbi":       "power bi",
	"ms excel":      "excel",
	"microsoft excel": "excel",
	"ms sql server": "sql server",
	"mssql":         "sql server",
	"sqlserver":     "sql server",
	"ansible iac":   "ansible",
	"grpc.io":       "grpc",
}

// Normalize lowercases, trims, strips trailing punctuation and resolves a
// single raw skill token to its canonical form. An empty result means the
// input had nothing to normalize.
func Normalize(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.Trim(s, ",;:!?()[]{}\"'")
	// TrimRight only, not Trim: leading "." is meaningful inside alias
	// codomain values like ".net", but a trailing "." is just sentence
	// punctuation (spec step 1). Trimming only the tail keeps Normalize
	// idempotent for ".net" while still cleaning up "python.".
	s = strings.TrimRight(s, ".,;:")
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return ""
	}
	if canon, ok := aliases[s]; ok {
		return canon
	}
	return s
}

// NormalizeAll normalizes a list of raw skill tokens and de-dupes the
// result, preserving first-seen order.
func NormalizeAll(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		n := Normalize(r)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
