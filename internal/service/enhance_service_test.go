package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"portfolio-enhancer/internal/adapter/describe"
	"portfolio-enhancer/internal/domain"
	"portfolio-enhancer/internal/port"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// Mock implementations for testing
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) FetchRepoData(ctx context.Context, owner, repo string) (*domain.RepoData, error) {
	args := m.Called(ctx, owner, repo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RepoData), args.Error(1)
}

type MockDetector struct {
	mock.Mock
}

func (m *MockDetector) Detect(record *domain.RepoData) domain.SkillSet {
	args := m.Called(record)
	return args.Get(0).(domain.SkillSet)
}

type MockDescriber struct {
	mock.Mock
}

func (m *MockDescriber) Describe(ctx context.Context, record *domain.RepoData, skills []string) string {
	args := m.Called(ctx, record, skills)
	return args.String(0)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(repoName string) (*domain.CacheEntry, bool) {
	args := m.Called(repoName)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).(*domain.CacheEntry), args.Bool(1)
}

func (m *MockCache) Put(repoName string, entry *domain.CacheEntry) {
	m.Called(repoName, entry)
}

func (m *MockCache) EvictStale() {
	m.Called()
}

func (m *MockCache) LoadSkills() []string {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]string)
}

func (m *MockCache) SaveSkills(skills []string) {
	m.Called(skills)
}

// fakeCard 有状态的卡片替身，方便断言最终文本
type fakeCard struct {
	desc  string
	stats string
	tags  []string
}

func (c *fakeCard) DescriptionText() string    { return c.desc }
func (c *fakeCard) SetDescription(text string) { c.desc = text }
func (c *fakeCard) SetStatsHTML(html string)   { c.stats = html }
func (c *fakeCard) AppendTags(labels []string) { c.tags = append(c.tags, labels...) }

// fakeDoc 有状态的页面替身
type fakeDoc struct {
	cards      map[string]*fakeCard
	gridSkills []string
	tagSkills  []string
	finalGrid  []string
	savedPath  string
}

func (d *fakeDoc) FindCard(repoName string) (port.Card, bool) {
	card, ok := d.cards[repoName]
	if !ok {
		return nil, false
	}
	return card, true
}

func (d *fakeDoc) ExistingGridSkills() []string      { return d.gridSkills }
func (d *fakeDoc) ExistingTagSkills() []string       { return d.tagSkills }
func (d *fakeDoc) ReplaceSkillsGrid(labels []string) { d.finalGrid = labels }
func (d *fakeDoc) Save(path string) error            { d.savedPath = path; return nil }

func newTestService(doc *fakeDoc) (*EnhanceService, *MockFetcher, *MockDetector, *MockDescriber, *MockCache) {
	fetcher := new(MockFetcher)
	det := new(MockDetector)
	describer := new(MockDescriber)
	cacheStore := new(MockCache)

	s := NewEnhanceService(fetcher, det, describer, cacheStore, doc)
	s.SetRepoDelay(0) // 测试不等节流
	return s, fetcher, det, describer, cacheStore
}

func TestExecuteEnhanceCycle_CacheHitSkipsNetwork(t *testing.T) {
	card := &fakeCard{desc: "Original text."}
	doc := &fakeDoc{cards: map[string]*fakeCard{"demo": card}}
	s, fetcher, _, _, cacheStore := newTestService(doc)

	cacheStore.On("EvictStale").Return()
	cacheStore.On("LoadSkills").Return([]string{"Git"})
	cacheStore.On("Get", "demo").Return(&domain.CacheEntry{
		Description: "Cached description.",
		Skills:      []string{"Flask", "Python"},
		StatsHTML:   "<span>cached</span>",
	}, true)
	cacheStore.On("SaveSkills", mock.Anything).Return()

	err := s.ExecuteEnhanceCycle(context.Background(), []string{"owner/demo"}, "index.html")

	assert.NoError(t, err)
	assert.Equal(t, "Cached description.", card.desc)
	assert.Equal(t, "<span>cached</span>", card.stats)
	// 网格 = 缓存技能 ∪ 聚合清单，排序去重
	assert.Equal(t, []string{"Flask", "Git", "Python"}, doc.finalGrid)
	assert.Equal(t, "index.html", doc.savedPath)
	// Fetcher 上没有任何期望：只要被调用测试就会失败
	fetcher.AssertNotCalled(t, "FetchRepoData", mock.Anything, mock.Anything, mock.Anything)
}

func TestExecuteEnhanceCycle_CacheHitIsIdempotentAcrossRuns(t *testing.T) {
	// 第二轮命中缓存时卡片文本已经等于缓存定稿，
	// 不能再追加收尾句，否则页面在连续运行之间来回变动
	card := &fakeCard{desc: "Enhanced description."}
	doc := &fakeDoc{cards: map[string]*fakeCard{"demo": card}}
	s, _, _, _, cacheStore := newTestService(doc)

	cacheStore.On("EvictStale").Return()
	cacheStore.On("LoadSkills").Return(nil)
	cacheStore.On("Get", "demo").Return(&domain.CacheEntry{
		Description: "Enhanced description.",
		Skills:      []string{"Python"},
	}, true)
	cacheStore.On("SaveSkills", mock.Anything).Return()

	err := s.ExecuteEnhanceCycle(context.Background(), []string{"o/demo"}, "index.html")

	assert.NoError(t, err)
	assert.Equal(t, "Enhanced description.", card.desc)
}

func TestExecuteEnhanceCycle_EmptyCachedDescriptionDegradesCard(t *testing.T) {
	card := &fakeCard{desc: "Original text."}
	doc := &fakeDoc{cards: map[string]*fakeCard{"demo": card}}
	s, _, _, _, cacheStore := newTestService(doc)

	cacheStore.On("EvictStale").Return()
	cacheStore.On("LoadSkills").Return(nil)
	cacheStore.On("Get", "demo").Return(&domain.CacheEntry{Description: "  "}, true)
	cacheStore.On("SaveSkills", mock.Anything).Return()

	err := s.ExecuteEnhanceCycle(context.Background(), []string{"o/demo"}, "index.html")

	assert.NoError(t, err)
	// 缓存条目坏了也不能把卡片写空
	assert.Equal(t, "Original text. "+describe.GenericSentence, card.desc)
}

func TestExecuteEnhanceCycle_CacheMissFullFlow(t *testing.T) {
	card := &fakeCard{desc: "Original text."}
	doc := &fakeDoc{cards: map[string]*fakeCard{"demo": card}}
	s, fetcher, det, describer, cacheStore := newTestService(doc)

	record := &domain.RepoData{
		Name:     "demo",
		Stars:    5,
		Forks:    2,
		Language: "Python",
		Updated:  "2026-08-01",
		Topics:   []string{"ml"},
	}
	detected := domain.NewSkillSet("Python", "Flask")

	cacheStore.On("EvictStale").Return()
	cacheStore.On("LoadSkills").Return(nil)
	cacheStore.On("Get", "demo").Return(nil, false)
	fetcher.On("FetchRepoData", mock.Anything, "owner", "demo").Return(record, nil)
	det.On("Detect", record).Return(detected)
	describer.On("Describe", mock.Anything, record, []string{"Flask", "Python"}).Return("Fresh description.")
	cacheStore.On("Put", "demo", mock.MatchedBy(func(entry *domain.CacheEntry) bool {
		return entry.Description == "Fresh description." &&
			assert.ObjectsAreEqual([]string{"Flask", "Python"}, entry.Skills) &&
			strings.Contains(entry.StatsHTML, "fa-star")
	})).Return()
	cacheStore.On("SaveSkills", []string{"Flask", "Python"}).Return()

	err := s.ExecuteEnhanceCycle(context.Background(), []string{"owner/demo"}, "index.html")

	assert.NoError(t, err)
	assert.Equal(t, "Fresh description.", card.desc)
	assert.Contains(t, card.stats, "fa-star")
	// 标签顺序：topics 在前，识别技能在后
	assert.Equal(t, []string{"ml", "Flask", "Python"}, card.tags)
	assert.Equal(t, []string{"Flask", "Python"}, doc.finalGrid)

	fetcher.AssertExpectations(t)
	det.AssertExpectations(t)
	describer.AssertExpectations(t)
	cacheStore.AssertExpectations(t)
}

func TestExecuteEnhanceCycle_FetchFailureDegradesCardAndContinues(t *testing.T) {
	broken := &fakeCard{desc: "Broken original."}
	healthy := &fakeCard{desc: "Healthy original."}
	doc := &fakeDoc{cards: map[string]*fakeCard{"broken": broken, "healthy": healthy}}
	s, fetcher, det, describer, cacheStore := newTestService(doc)

	record := &domain.RepoData{Name: "healthy"}
	detected := domain.NewSkillSet("Go")

	cacheStore.On("EvictStale").Return()
	cacheStore.On("LoadSkills").Return(nil)
	cacheStore.On("Get", "broken").Return(nil, false)
	cacheStore.On("Get", "healthy").Return(nil, false)
	fetcher.On("FetchRepoData", mock.Anything, "o", "broken").Return(nil, errors.New("rate limit exceeded"))
	fetcher.On("FetchRepoData", mock.Anything, "o", "healthy").Return(record, nil)
	det.On("Detect", record).Return(detected)
	describer.On("Describe", mock.Anything, record, []string{"Go"}).Return("New healthy description.")
	cacheStore.On("Put", "healthy", mock.Anything).Return()
	cacheStore.On("SaveSkills", mock.Anything).Return()

	err := s.ExecuteEnhanceCycle(context.Background(), []string{"o/broken", "o/healthy"}, "index.html")

	// 单仓库失败不拖垮整轮
	assert.NoError(t, err)
	assert.Equal(t, "Broken original. "+describe.GenericSentence, broken.desc)
	assert.Equal(t, "New healthy description.", healthy.desc)
	// 失败的仓库不写缓存
	cacheStore.AssertNotCalled(t, "Put", "broken", mock.Anything)
	assert.Equal(t, "index.html", doc.savedPath)
}

func TestExecuteEnhanceCycle_FailedRepoWithEmptyOriginalStillNonEmpty(t *testing.T) {
	card := &fakeCard{desc: ""}
	doc := &fakeDoc{cards: map[string]*fakeCard{"demo": card}}
	s, fetcher, _, _, cacheStore := newTestService(doc)

	cacheStore.On("EvictStale").Return()
	cacheStore.On("LoadSkills").Return(nil)
	cacheStore.On("Get", "demo").Return(nil, false)
	fetcher.On("FetchRepoData", mock.Anything, "o", "demo").Return(nil, errors.New("boom"))
	cacheStore.On("SaveSkills", mock.Anything).Return()

	err := s.ExecuteEnhanceCycle(context.Background(), []string{"o/demo"}, "index.html")

	assert.NoError(t, err)
	// 哪怕原文是空的，降级后也必须有非空描述
	assert.Equal(t, describe.GenericSentence, card.desc)
}

func TestExecuteEnhanceCycle_IdenticalDescriptionAppendsInsteadOfReplacing(t *testing.T) {
	card := &fakeCard{desc: "Same text."}
	doc := &fakeDoc{cards: map[string]*fakeCard{"demo": card}}
	s, fetcher, det, describer, cacheStore := newTestService(doc)

	record := &domain.RepoData{Name: "demo"}

	cacheStore.On("EvictStale").Return()
	cacheStore.On("LoadSkills").Return(nil)
	cacheStore.On("Get", "demo").Return(nil, false)
	fetcher.On("FetchRepoData", mock.Anything, "o", "demo").Return(record, nil)
	det.On("Detect", record).Return(domain.NewSkillSet())
	describer.On("Describe", mock.Anything, record, mock.Anything).Return("Same text.")
	cacheStore.On("Put", "demo", mock.Anything).Return()
	cacheStore.On("SaveSkills", mock.Anything).Return()

	err := s.ExecuteEnhanceCycle(context.Background(), []string{"o/demo"}, "index.html")

	assert.NoError(t, err)
	assert.Equal(t, "Same text. "+describe.GenericSentence, card.desc)
}

func TestExecuteEnhanceCycle_MissingCardSkipped(t *testing.T) {
	doc := &fakeDoc{cards: map[string]*fakeCard{}, gridSkills: []string{"Python"}}
	s, fetcher, _, _, cacheStore := newTestService(doc)

	cacheStore.On("EvictStale").Return()
	cacheStore.On("LoadSkills").Return(nil)
	cacheStore.On("SaveSkills", mock.Anything).Return()

	err := s.ExecuteEnhanceCycle(context.Background(), []string{"o/untracked"}, "index.html")

	assert.NoError(t, err)
	// 没有卡片就不抓取，但网格照常重建并写回
	fetcher.AssertNotCalled(t, "FetchRepoData", mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, []string{"Python"}, doc.finalGrid)
	assert.Equal(t, "index.html", doc.savedPath)
}

func TestExecuteEnhanceCycle_GridIsUnionOfAllSources(t *testing.T) {
	card := &fakeCard{desc: "Original."}
	doc := &fakeDoc{
		cards:      map[string]*fakeCard{"demo": card},
		gridSkills: []string{"Git"},
		tagSkills:  []string{"erp", "ML"},
	}
	s, _, _, _, cacheStore := newTestService(doc)

	cacheStore.On("EvictStale").Return()
	cacheStore.On("LoadSkills").Return([]string{"Python"})
	cacheStore.On("Get", "demo").Return(&domain.CacheEntry{
		Description: "Cached.",
		Skills:      []string{"Flask"},
	}, true)
	cacheStore.On("SaveSkills", mock.Anything).Return()

	err := s.ExecuteEnhanceCycle(context.Background(), []string{"o/demo"}, "index.html")

	assert.NoError(t, err)
	// 现有网格 ∪ 所有标签 ∪ 缓存技能 ∪ 聚合清单，排序去重，谁都不丢
	assert.Equal(t, []string{"Flask", "Git", "ML", "Python", "erp"}, doc.finalGrid)
}

func TestSplitRepoPath(t *testing.T) {
	tests := []struct {
		input string
		owner string
		name  string
		ok    bool
	}{
		{"owner/repo", "owner", "repo", true},
		{"/owner/repo/", "owner", "repo", true},
		{"just-a-name", "", "", false},
		{"a/b/c", "", "", false},
		{"", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			owner, name, ok := splitRepoPath(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.owner, owner)
			assert.Equal(t, tt.name, name)
		})
	}
}
