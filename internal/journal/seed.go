package journal

import (
	"time"

	"github.com/littleexplorer/atlas/pkg/core"
)

// Seed returns the sample journal shown until something has been saved.
func Seed() []core.Memory {
	return []core.Memory{
		{
			ID:           "1",
			LocationName: "北京故宫",
			Coordinates:  core.Coordinates{Lat: 39.9163, Lng: 116.3972},
			Date:         core.NewDate(2023, time.June, 15),
			Companions:   []string{"爸爸", "妈妈"},
			Description:  "我们爬上了景山看故宫全景，红墙黄瓦真的太壮观了。还看到了宫猫！",
			FunFact:      "故宫里有9999间半房子，据说只比天上的宫殿少半间哦！",
			Photos:       []string{"https://picsum.photos/id/1018/800/600"},
			Tags:         []string{"历史", "北京", "古迹"},
		},
		{
			ID:           "2",
			LocationName: "上海外滩",
			Coordinates:  core.Coordinates{Lat: 31.2304, Lng: 121.4737},
			Date:         core.NewDate(2022, time.August, 10),
			Companions:   []string{"奶奶"},
			Description:  "晚上的灯光太美了，东方明珠塔像个大火箭。我们还坐了轮渡过江。",
			FunFact:      "外滩被称为“万国建筑博览群”，这里有52幢风格各异的大楼。",
			Photos:       []string{"https://picsum.photos/id/1015/800/600"},
			Tags:         []string{"城市", "夜景", "摩天大楼"},
		},
		{
			ID:           "3",
			LocationName: "西安兵马俑",
			Coordinates:  core.Coordinates{Lat: 34.3841, Lng: 109.2785},
			Date:         core.NewDate(2024, time.January, 20),
			Companions:   []string{"表弟"},
			Description:  "好多好多的泥人战士，每一个长得都不一样！他们都在保护秦始皇。",
			FunFact:      "兵马俑原本是彩色的，但是出土后遇到空气氧化，颜色才消失了。",
			Photos:       []string{"https://picsum.photos/id/1047/800/600"},
			Tags:         []string{"博物馆", "历史", "西安"},
		},
	}
}
