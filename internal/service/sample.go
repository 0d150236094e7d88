package service

import "github.com/laocai-wudi/chunmpre.cn/internal/codec"

func price(v float64) *float64 { return &v }

// SampleProducts is the demo catalog loaded by "catalogctl import-sample-data".
// It expects the default categories to exist.
func SampleProducts() []ImportRow {
	return []ImportRow{
		{
			Name:           "高精度三坐标测量机",
			Category:       "三坐标测量机",
			Description:    "本产品采用先进的测量技术，提供高精度的三维坐标测量，广泛应用于机械制造、航空航天等领域。测量精度可达0.001mm，支持多种测量模式和数据导出格式。",
			Price:          price(128000),
			Stock:          5,
			Status:         true,
			Advantages:     []string{"测量精度可达0.001mm", "支持多种测量模式", "测量数据可导出"},
			ServiceTags:    []string{"免费安装", "一年质保"},
			TechnicalSpecs: codec.NewMapping("测量精度", "0.001mm", "适用领域", "机械制造、航空航天"),
		},
		{
			Name:        "FANUC加工中心",
			Category:    "光学测量仪器",
			Description: "日本原装进口FANUC加工中心，高精度、高效率的数控加工设备，适用于复杂零件的精密加工。配备先进的控制系统和自动换刀系统，可实现24小时不间断生产。",
			Price:       price(356000),
			Stock:       3,
			Status:      true,
		},
		{
			Name:        "泰勒霍普森圆度仪",
			Category:    "坐标测量仪",
			Description: "英国泰勒霍普森公司生产的高精度圆度仪，用于测量旋转零件的圆度、圆柱度、同轴度等几何误差。配备专业测量软件，支持数据统计分析和报告生成。",
			Price:       price(89000),
			Stock:       2,
			Status:      true,
		},
		{
			Name:         "TRIOPTICS光学测量系统",
			Category:     "光学测量仪器",
			Description:  "德国TRIOPTICS公司生产的光学元件测量系统，用于测量透镜、棱镜等光学元件的面型、曲率、中心厚度等参数。采用非接触式测量方法，保证测量精度和效率。",
			Price:        price(218000),
			Stock:        1,
			Status:       true,
			Applications: "透镜、棱镜等光学元件检测",
		},
		{
			Name:        "UA3P全自动影像测量仪",
			Category:    "影像测量仪",
			Description: "UA3P系列全自动影像测量仪，采用高精度光学系统和数控平台，可实现二维尺寸的快速精确测量。支持自动对焦、自动识别和批量测量，提高检测效率。",
			Price:       price(76500),
			Stock:       4,
			Status:      true,
		},
		{
			Name:        "数控车床",
			Category:    "三坐标测量机",
			Description: "高精度数控车床，适用于轴类、盘类零件的加工。配备高性能数控系统和精密主轴，保证加工精度和表面质量。支持多种编程方式和自动化操作。",
			Price:       price(98000),
			Stock:       6,
			Status:      true,
		},
	}
}
