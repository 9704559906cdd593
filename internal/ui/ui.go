package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/h4nsec/SpotiPlay/internal/formatter"
	"github.com/h4nsec/SpotiPlay/internal/models"
	"github.com/h4nsec/SpotiPlay/internal/shared"
	"github.com/h4nsec/SpotiPlay/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	InputView ViewState = iota
	ResolveView
	PickView
	TargetView
	NameView
	ConfirmView
	ReconcileView
	ResultView
)

// Engine is the part of [tasks.Engine] the TUI drives.
type Engine interface {
	Prepare(ctx context.Context, url string, progress chan<- tasks.ProgressUpdate) (*models.SetlistPage, *models.Resolutions, error)
	Reconcile(ctx context.Context, sel models.SelectionRequest, progress chan<- tasks.ProgressUpdate) (*models.ReconciliationResult, error)
}

// PlaylistLister lists the user's playlists for the append target picker.
type PlaylistLister interface {
	UserPlaylists(ctx context.Context, limit int) ([]models.PlaylistSummary, error)
}

// HistoryRecorder stores reconciliation outcomes.
type HistoryRecorder interface {
	Create(record *models.ImportRecord) error
}

// Options configures a [Model]. URL, PlaylistName and PlaylistID skip the views that would ask for them.
type Options struct {
	Engine    Engine
	Playlists PlaylistLister
	History   HistoryRecorder
	ListLimit int
	Logger    *log.Logger

	URL          string
	PlaylistName string
	PlaylistID   string
}

// Model represents the TUI application state.
type Model struct {
	ctx  context.Context
	opts Options
	view ViewState

	width  int
	height int

	urlInput  textinput.Model
	nameInput textinput.Model
	spinner   spinner.Model
	targets   list.Model
	help      help.Model
	keys      keyMap

	url         string
	page        *models.SetlistPage
	resolutions *models.Resolutions
	picker      *picker
	target      playlistItem
	progress    tasks.ProgressUpdate
	job         *job
	result      *models.ReconciliationResult
	err         error
}

// job runs one engine call off the update loop.
//
// The worker closes progress before sending its final message on done.
type job struct {
	progress chan tasks.ProgressUpdate
	done     chan tea.Msg
}

func startJob(work func(progress chan<- tasks.ProgressUpdate) tea.Msg) *job {
	j := &job{progress: make(chan tasks.ProgressUpdate, 50), done: make(chan tea.Msg, 1)}
	go func() {
		msg := work(j.progress)
		close(j.progress)
		j.done <- msg
	}()
	return j
}

func (j *job) wait() tea.Cmd {
	return func() tea.Msg {
		if update, ok := <-j.progress; ok {
			return progressUpdateMsg(update)
		}
		return <-j.done
	}
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, opts Options) *Model {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.ListLimit <= 0 {
		opts.ListLimit = 10
	}

	urlInput := textinput.New()
	urlInput.Placeholder = "https://www.setlist.fm/setlist/..."
	urlInput.Prompt = "Setlist URL: "
	urlInput.CharLimit = 512
	urlInput.Width = 72

	nameInput := textinput.New()
	nameInput.Prompt = "Playlist name: "
	nameInput.CharLimit = 100
	nameInput.Width = 48

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.cursor

	m := &Model{
		ctx:       ctx,
		opts:      opts,
		view:      InputView,
		urlInput:  urlInput,
		nameInput: nameInput,
		spinner:   sp,
		help:      help.New(),
		keys:      newKeyMap(),
		url:       strings.TrimSpace(opts.URL),
	}
	m.urlInput.Focus()
	return m
}

// Init starts resolving right away when a URL was given, otherwise waits for input.
func (m *Model) Init() tea.Cmd {
	if m.url != "" {
		return m.startResolve()
	}
	return textinput.Blink
}

// Result returns the reconciliation outcome and error once the TUI has finished.
func (m *Model) Result() (*models.ReconciliationResult, error) {
	return m.result, m.err
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.view == TargetView {
			m.targets.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.view {
		case InputView:
			return m.handleInputKeys(msg)
		case PickView:
			return m.handlePickKeys(msg)
		case TargetView:
			return m.handleTargetKeys(msg)
		case NameView:
			return m.handleNameKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}
		return m, nil

	case spinner.TickMsg:
		if m.view != ResolveView && m.view != ReconcileView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		return m.handleMsg(msg)
	}

	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgProgressUpdate:
		m.progress = msg.data.(tasks.ProgressUpdate)
		if m.job == nil {
			return m, nil
		}
		return m, m.job.wait()

	case MsgResolved:
		data := msg.data.(resolvedData)
		m.job = nil
		if data.err != nil {
			m.opts.Logger.Error("resolve failed", "url", m.url, "error", data.err)
			m.err = data.err
			m.view = ResultView
			return m, nil
		}
		m.page = data.page
		m.resolutions = data.resolutions
		m.picker = newPicker(data.resolutions)
		m.view = PickView
		return m, nil

	case MsgPlaylistsFetched:
		data := msg.data.(playlistsData)
		items := []list.Item{playlistItem{}}
		if data.err != nil {
			m.opts.Logger.Warn("could not list playlists", "error", data.err)
		}
		for _, pl := range data.playlists {
			items = append(items, playlistItem{playlist: pl})
		}
		m.targets = list.New(items, list.NewDefaultDelegate(), m.width-4, m.height-8)
		m.targets.Title = "Add to which playlist?"
		m.targets.SetShowStatusBar(false)
		m.view = TargetView
		return m, nil

	case MsgReconciled:
		data := msg.data.(reconciledData)
		m.job = nil
		m.result = data.result
		m.err = data.err
		m.record()
		m.view = ResultView
		return m, nil
	}
	return m, nil
}

func (m *Model) handleInputKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		return m, tea.Quit
	case tea.KeyEnter:
		url := strings.TrimSpace(m.urlInput.Value())
		if url == "" {
			return m, nil
		}
		m.url = url
		return m, m.startResolve()
	}

	var cmd tea.Cmd
	m.urlInput, cmd = m.urlInput.Update(msg)
	return m, cmd
}

func (m *Model) handlePickKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.up):
		m.picker.up()
	case key.Matches(msg, m.keys.down):
		m.picker.down()
	case key.Matches(msg, m.keys.toggle):
		m.picker.toggle()
	case key.Matches(msg, m.keys.enter):
		return m.chooseTarget()
	}
	return m, nil
}

func (m *Model) chooseTarget() (tea.Model, tea.Cmd) {
	switch {
	case m.opts.PlaylistID != "":
		m.target = playlistItem{playlist: models.PlaylistSummary{ID: m.opts.PlaylistID, Name: m.opts.PlaylistID}}
		m.view = ConfirmView
		return m, nil
	case m.opts.PlaylistName != "":
		m.target = playlistItem{}
		m.nameInput.SetValue(m.opts.PlaylistName)
		m.view = ConfirmView
		return m, nil
	case m.opts.Playlists == nil:
		return m.askName()
	}
	return m, m.fetchPlaylists()
}

func (m *Model) askName() (tea.Model, tea.Cmd) {
	m.target = playlistItem{}
	if m.nameInput.Value() == "" && m.page != nil {
		m.nameInput.SetValue(m.page.Artist + " Setlist")
	}
	m.nameInput.Focus()
	m.view = NameView
	return m, textinput.Blink
}

func (m *Model) handleTargetKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.targets.FilterState() != list.Filtering {
		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "esc":
			m.view = PickView
			return m, nil
		case "enter":
			if item, ok := m.targets.SelectedItem().(playlistItem); ok {
				if item.isNew() {
					return m.askName()
				}
				m.target = item
				m.view = ConfirmView
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.targets, cmd = m.targets.Update(msg)
	return m, cmd
}

func (m *Model) handleNameKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.nameInput.Blur()
		m.view = PickView
		return m, nil
	case tea.KeyEnter:
		if strings.TrimSpace(m.nameInput.Value()) == "" {
			return m, nil
		}
		m.nameInput.Blur()
		m.view = ConfirmView
		return m, nil
	}

	var cmd tea.Cmd
	m.nameInput, cmd = m.nameInput.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "n", "esc":
		m.view = PickView
		return m, nil
	case "y":
		return m, m.startReconcile()
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc", "enter":
		return m, tea.Quit
	case "r":
		m.view = InputView
		m.url = ""
		m.page, m.resolutions, m.picker = nil, nil, nil
		m.result, m.err = nil, nil
		m.urlInput.SetValue("")
		m.nameInput.SetValue("")
		m.urlInput.Focus()
		return m, textinput.Blink
	}
	return m, nil
}

// selection builds the request for the current picks and target.
func (m *Model) selection() models.SelectionRequest {
	sel := models.SelectionRequest{TrackIDs: m.picker.trackIDs()}
	if m.resolutions != nil {
		sel.Offer = m.resolutions.Offer()
	}
	if m.target.isNew() {
		sel.NewPlaylistName = strings.TrimSpace(m.nameInput.Value())
	} else {
		sel.TargetPlaylistID = m.target.playlist.ID
	}
	return sel
}

func (m *Model) record() {
	if m.opts.History == nil || m.page == nil {
		return
	}

	result := m.result
	if result == nil {
		rerr, ok := tasks.AsReconcileError(m.err)
		if !ok || rerr.Kind != tasks.PartialAdd {
			return
		}
		result = &models.ReconciliationResult{
			Mode:         models.ModeCreated,
			PlaylistID:   rerr.PlaylistID,
			PlaylistName: strings.TrimSpace(m.nameInput.Value()),
		}
	}

	if err := m.opts.History.Create(models.NewImportRecord(m.page.URL, m.page.Artist, result)); err != nil {
		m.opts.Logger.Warn("failed to record import", "playlist", result.PlaylistID, "error", err)
	}
}

func (m *Model) startResolve() tea.Cmd {
	m.view = ResolveView
	m.progress = tasks.ProgressUpdate{Message: "Fetching " + m.url}
	url := m.url
	m.job = startJob(func(progress chan<- tasks.ProgressUpdate) tea.Msg {
		page, resolutions, err := m.opts.Engine.Prepare(m.ctx, url, progress)
		return resolvedMsg(page, resolutions, err)
	})
	return tea.Batch(m.spinner.Tick, m.job.wait())
}

func (m *Model) startReconcile() tea.Cmd {
	m.view = ReconcileView
	m.progress = tasks.ProgressUpdate{}
	sel := m.selection()
	m.job = startJob(func(progress chan<- tasks.ProgressUpdate) tea.Msg {
		result, err := m.opts.Engine.Reconcile(m.ctx, sel, progress)
		return reconciledMsg(result, err)
	})
	return tea.Batch(m.spinner.Tick, m.job.wait())
}

func (m *Model) fetchPlaylists() tea.Cmd {
	return func() tea.Msg {
		playlists, err := m.opts.Playlists.UserPlaylists(m.ctx, m.opts.ListLimit)
		return playlistsFetchedMsg(playlists, err)
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case InputView:
		return m.renderInput()
	case ResolveView, ReconcileView:
		return m.renderProgress()
	case PickView:
		return m.renderPick()
	case TargetView:
		return fmt.Sprintf("%s\n\n%s", m.targets.View(), m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.back, m.keys.quit}))
	case NameView:
		return fmt.Sprintf("%s\n\n%s\n\n%s", styles.title.Render("New playlist"), m.nameInput.View(),
			m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.back}))
	case ConfirmView:
		return m.renderConfirm()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) renderInput() string {
	title := styles.title.Render("Setlist to Playlist")
	return fmt.Sprintf("%s\n%s\n\n%s", title, m.urlInput.View(), styles.help.Render("enter to search • esc to quit"))
}

func (m *Model) renderProgress() string {
	title := "Resolving setlist"
	if m.view == ReconcileView {
		title = "Updating playlist"
	}

	var phase string
	switch m.progress.Phase {
	case tasks.FetchSetlist:
		phase = "Fetching setlist..."
	case tasks.SearchTracks:
		phase = fmt.Sprintf("Searching songs (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.CreatePlaylist:
		phase = "Creating playlist..."
	case tasks.AddTracks:
		phase = "Adding tracks..."
	}

	return fmt.Sprintf("%s\n\n%s %s\n%s", styles.title.Render(title), m.spinner.View(), phase, m.progress.Message)
}

// visibleRows returns the window of picker rows that fits the terminal height around the cursor.
func (m *Model) visibleRows() (int, int) {
	n := len(m.picker.rows)
	size := m.height - 8
	if size <= 0 || size >= n {
		return 0, n
	}
	start := m.picker.cursor - size/2
	if start < 0 {
		start = 0
	}
	if start+size > n {
		start = n - size
	}
	return start, start + size
}

func (m *Model) renderPick() string {
	var b strings.Builder
	b.WriteString(styles.title.Render(fmt.Sprintf("%s: %d of %d songs matched", m.resolutions.Artist, m.resolutions.MatchedCount(), m.resolutions.Len())))
	b.WriteString("\n")

	start, end := m.visibleRows()
	lastSong := -1
	if start > 0 {
		lastSong = m.picker.rows[start-1].song
	}
	for i := start; i < end; i++ {
		row := m.picker.rows[i]
		if row.song != lastSong {
			b.WriteString(styles.song.Render(fmt.Sprintf("%d. %s", row.song+1, m.picker.songs[row.song].Song)))
			b.WriteString("\n")
			lastSong = row.song
		}

		cursor := "  "
		if i == m.picker.cursor {
			cursor = styles.cursor.Render("> ")
		}

		c := m.picker.candidate(i)
		if c == nil {
			b.WriteString(fmt.Sprintf("  %s    %s\n", cursor, styles.warn.Render("no match")))
			continue
		}

		box := "[ ]"
		line := fmt.Sprintf("%s - %s", c.Artist, c.Title)
		if m.picker.selected[i] {
			box = "[x]"
			line = styles.selected.Render(line)
		}
		b.WriteString(fmt.Sprintf("  %s%s %s %s\n", cursor, box, line, styles.help.Render(c.DisplayMeta)))
	}

	if len(m.resolutions.Unsearchable) > 0 {
		b.WriteString("\n")
		b.WriteString(styles.warn.Render("Not searchable: " + strings.Join(m.resolutions.Unsearchable, "; ")))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.up, m.keys.down, m.keys.toggle, m.keys.enter, m.keys.quit}))
	return b.String()
}

func (m *Model) renderConfirm() string {
	count := len(m.picker.trackIDs())
	var question string
	if m.target.isNew() {
		question = fmt.Sprintf("Create playlist %q with %d tracks?", strings.TrimSpace(m.nameInput.Value()), count)
	} else {
		question = fmt.Sprintf("Add %d tracks to %q?", count, m.target.playlist.Name)
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.no})
	return fmt.Sprintf("%s\n%s", styles.title.Render(question), helpView)
}

func (m *Model) renderResult() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.restart, m.keys.quit})

	if m.err != nil {
		if rerr, ok := tasks.AsReconcileError(m.err); ok && rerr.Kind == tasks.PartialAdd {
			return fmt.Sprintf("%s\n\n%s\n\n%s",
				styles.warn.Render(fmt.Sprintf("Playlist %s was created but tracks were not added", rerr.PlaylistID)),
				m.err.Error(), helpView)
		}
		return fmt.Sprintf("%s\n\n%s", styles.err.Render(fmt.Sprintf("Import failed: %v", m.err)), helpView)
	}

	if m.result == nil {
		return styles.err.Render("No result available\n\nPress r to retry, q to quit")
	}

	title := styles.ok.Render("✓ " + formatter.ResultToText(m.result))
	return fmt.Sprintf("%s\n\n%s", title, helpView)
}
