package models

// PortfolioLayout selects how portfolio media is arranged
type PortfolioLayout string

const (
	LayoutGrid       PortfolioLayout = "grid"
	LayoutFullscreen PortfolioLayout = "fullscreen"
)

// PresentationState represents the live cursor and overlay snapshot that every
// window replicates
type PresentationState struct {
	CurrentSlideIndex int             `json:"currentSlideIndex"`
	ShowQR            bool            `json:"showQR"`
	ShowLowerThird    bool            `json:"showLowerThird"`
	PortfolioLayout   PortfolioLayout `json:"portfolioLayout"`
	SelectedImage     *int            `json:"selectedImage"`
	AutoMode          bool            `json:"autoMode"`
	SlideElapsedMs    int64           `json:"slideElapsedMs"`
	ShowElapsedMs     int64           `json:"showElapsedMs"`
	SlideCount        int             `json:"slideCount"`
}
